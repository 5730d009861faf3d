// Package hooks defines the extension system for the job engine.
//
// Extensions are notified of lifecycle events (job submitted, started,
// paused, retried, completed...) and can react to them — logging,
// metrics, audit trails, live status fan-out. Each lifecycle event is a
// separate interface so an extension opts in only to the events it
// cares about.
package hooks

import (
	"context"
	"time"

	"github.com/orthanc-go/jobengine/id"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// JobInfo is the read-only view of a handler passed to lifecycle hooks.
// It is a snapshot taken at emit time, not a live handle — extensions
// must not retain it across calls expecting it to update.
type JobInfo struct {
	ID          id.JobID
	Priority    int
	State       string
	Progress    float64
	Description string
}

// JobSubmitted is called after a job is accepted into the registry.
type JobSubmitted interface {
	OnJobSubmitted(ctx context.Context, j JobInfo) error
}

// JobStarted is called when a worker leases a handler and begins
// executing it for the first time.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j JobInfo) error
}

// JobPaused is called when a handler transitions out of Running because
// it was paused.
type JobPaused interface {
	OnJobPaused(ctx context.Context, j JobInfo) error
}

// JobResumed is called when a paused handler is moved back to Pending.
type JobResumed interface {
	OnJobResumed(ctx context.Context, j JobInfo) error
}

// JobCancelled is called when a handler is cancelled before reaching a
// terminal state on its own.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j JobInfo) error
}

// JobSucceeded is called after a job finishes successfully.
type JobSucceeded interface {
	OnJobSucceeded(ctx context.Context, j JobInfo, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally (no retry scheduled).
type JobFailed interface {
	OnJobFailed(ctx context.Context, j JobInfo, err error) error
}

// JobRetrying is called when a job's step reports Retry and it is
// parked in the retry set.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j JobInfo, nextRunAt time.Time) error
}

// JobResubmitted is called when a terminal job is resubmitted for a
// fresh run.
type JobResubmitted interface {
	OnJobResubmitted(ctx context.Context, j JobInfo) error
}

// JobPruned is called when a terminal handler is dropped from the
// completed ring because the ring exceeds its retention cap, either
// after a newer completion or after the cap is lowered.
type JobPruned interface {
	OnJobPruned(ctx context.Context, j JobInfo) error
}

// Shutdown is called during graceful shutdown of the engine.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
