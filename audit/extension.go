package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/orthanc-go/jobengine/hooks"
)

// Compile-time interface checks.
var (
	_ hooks.Extension      = (*Extension)(nil)
	_ hooks.JobSubmitted   = (*Extension)(nil)
	_ hooks.JobStarted     = (*Extension)(nil)
	_ hooks.JobPaused      = (*Extension)(nil)
	_ hooks.JobResumed     = (*Extension)(nil)
	_ hooks.JobCancelled   = (*Extension)(nil)
	_ hooks.JobSucceeded   = (*Extension)(nil)
	_ hooks.JobFailed      = (*Extension)(nil)
	_ hooks.JobRetrying    = (*Extension)(nil)
	_ hooks.JobResubmitted = (*Extension)(nil)
	_ hooks.JobPruned      = (*Extension)(nil)
)

// Recorder is the interface audit backends must implement. Extension
// does not know or care what the backend is — a file, a database table,
// a remote collector — only that it can persist a fully-formed Event.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// Event is a self-contained audit record. It carries no dependency on
// the hooks package's JobInfo so a Recorder implementation never needs
// to import the job engine to consume it.
type Event struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc adapts a plain function to a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Extension bridges registry lifecycle hooks to an audit trail backend.
// Each lifecycle hook emits a structured Event through the Recorder.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through recorder.
func New(recorder Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: recorder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hooks.Extension.
func (e *Extension) Name() string { return "audit" }

// OnJobSubmitted implements hooks.JobSubmitted.
func (e *Extension) OnJobSubmitted(ctx context.Context, j hooks.JobInfo) error {
	return e.record(ctx, ActionJobSubmitted, SeverityInfo, OutcomeSuccess, j, nil)
}

// OnJobStarted implements hooks.JobStarted.
func (e *Extension) OnJobStarted(ctx context.Context, j hooks.JobInfo) error {
	return e.record(ctx, ActionJobStarted, SeverityInfo, OutcomeSuccess, j, nil)
}

// OnJobPaused implements hooks.JobPaused.
func (e *Extension) OnJobPaused(ctx context.Context, j hooks.JobInfo) error {
	return e.record(ctx, ActionJobPaused, SeverityInfo, OutcomeSuccess, j, nil)
}

// OnJobResumed implements hooks.JobResumed.
func (e *Extension) OnJobResumed(ctx context.Context, j hooks.JobInfo) error {
	return e.record(ctx, ActionJobResumed, SeverityInfo, OutcomeSuccess, j, nil)
}

// OnJobCancelled implements hooks.JobCancelled.
func (e *Extension) OnJobCancelled(ctx context.Context, j hooks.JobInfo) error {
	return e.record(ctx, ActionJobCancelled, SeverityWarning, OutcomeFailure, j, nil)
}

// OnJobSucceeded implements hooks.JobSucceeded.
func (e *Extension) OnJobSucceeded(ctx context.Context, j hooks.JobInfo, elapsed time.Duration) error {
	return e.record(ctx, ActionJobSucceeded, SeverityInfo, OutcomeSuccess, j, nil,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobFailed implements hooks.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, j hooks.JobInfo, jobErr error) error {
	return e.recordErr(ctx, ActionJobFailed, SeverityCritical, OutcomeFailure, j, jobErr)
}

// OnJobRetrying implements hooks.JobRetrying.
func (e *Extension) OnJobRetrying(ctx context.Context, j hooks.JobInfo, nextRunAt time.Time) error {
	return e.record(ctx, ActionJobRetrying, SeverityWarning, OutcomeFailure, j, nil,
		"next_run_at", nextRunAt.Format(time.RFC3339),
	)
}

// OnJobResubmitted implements hooks.JobResubmitted.
func (e *Extension) OnJobResubmitted(ctx context.Context, j hooks.JobInfo) error {
	return e.record(ctx, ActionJobResubmitted, SeverityInfo, OutcomeSuccess, j, nil)
}

// OnJobPruned implements hooks.JobPruned.
func (e *Extension) OnJobPruned(ctx context.Context, j hooks.JobInfo) error {
	return e.record(ctx, ActionJobPruned, SeverityInfo, OutcomeSuccess, j, nil)
}

func (e *Extension) recordErr(ctx context.Context, action, severity, outcome string, j hooks.JobInfo, err error) error {
	return e.record(ctx, action, severity, outcome, j, err)
}

// record builds and sends an Event if action is enabled. kvPairs is a
// flat key/value list folded into Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	j hooks.JobInfo,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+2)
	meta["priority"] = j.Priority
	meta["state"] = j.State
	meta["progress"] = j.Progress
	for i := 0; i+1 < len(kvPairs); i += 2 {
		meta[kvPairs[i].(string)] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &Event{
		Action:     action,
		Resource:   Resource,
		Category:   Category,
		ResourceID: j.ID.String(),
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit: failed to record event",
			slog.String("action", action),
			slog.String("resource_id", evt.ResourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
