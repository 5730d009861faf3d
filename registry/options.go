package registry

import (
	"log/slog"

	"github.com/orthanc-go/jobengine/hooks"
	"github.com/orthanc-go/jobengine/jobs"
)

// Option configures a JobsRegistry.
type Option func(*JobsRegistry)

// Archiver is notified of a handler's final snapshot right before it is
// evicted from the completed ring. It is invoked synchronously under
// the registry mutex; a slow or failing Archiver degrades archival
// history, never engine-visible behavior. snapshot is nil when the
// evicted job did not implement jobs.Serializable or declined to
// serialize.
type Archiver interface {
	OnEvict(info JobInfo, snapshot *jobs.Snapshot)
}

// StatusPublisher receives every status/state update for live fan-out,
// topic-keyed by job id. The registry calls Publish after releasing its
// mutex, from whichever goroutine caused the update; implementations
// must not block for long or they will stall that caller.
type StatusPublisher interface {
	Publish(jobID string, info JobInfo)
}

// WithLogger sets the structured logger used by the registry.
func WithLogger(l *slog.Logger) Option {
	return func(r *JobsRegistry) { r.logger = l }
}

// WithMaxCompletedJobs sets the initial completed-ring retention cap.
// A value of 0 disables pruning. Defaults to 10.
func WithMaxCompletedJobs(n int) Option {
	return func(r *JobsRegistry) { r.maxCompletedJobs = n }
}

// WithHooks attaches an extension registry that observes every
// lifecycle transition. Purely observational; never gates a transition.
func WithHooks(h *hooks.Registry) Option {
	return func(r *JobsRegistry) { r.hooks = h }
}

// WithArchiver attaches a hook invoked with the final snapshot of a
// handler right before it is evicted from the completed ring.
func WithArchiver(a Archiver) Option {
	return func(r *JobsRegistry) { r.archiver = a }
}

// WithStatusPublisher attaches a sink notified of every status/state
// update, topic-keyed by job id, for live status fan-out (e.g. a
// pub/sub broker backing a watch endpoint). Purely observational.
func WithStatusPublisher(p StatusPublisher) Option {
	return func(r *JobsRegistry) { r.publisher = p }
}
