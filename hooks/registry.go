package hooks

import (
	"context"
	"log/slog"
	"time"
)

type jobSubmittedEntry struct {
	name string
	hook JobSubmitted
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobPausedEntry struct {
	name string
	hook JobPaused
}

type jobResumedEntry struct {
	name string
	hook JobResumed
}

type jobCancelledEntry struct {
	name string
	hook JobCancelled
}

type jobSucceededEntry struct {
	name string
	hook JobSucceeded
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobRetryingEntry struct {
	name string
	hook JobRetrying
}

type jobResubmittedEntry struct {
	name string
	hook JobResubmitted
}

type jobPrunedEntry struct {
	name string
	hook JobPruned
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	jobSubmitted   []jobSubmittedEntry
	jobStarted     []jobStartedEntry
	jobPaused      []jobPausedEntry
	jobResumed     []jobResumedEntry
	jobCancelled   []jobCancelledEntry
	jobSucceeded   []jobSucceededEntry
	jobFailed      []jobFailedEntry
	jobRetrying    []jobRetryingEntry
	jobResubmitted []jobResubmittedEntry
	jobPruned      []jobPrunedEntry
	shutdown       []shutdownEntry
}

// NewRegistry creates an extension registry that logs hook errors to logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into every applicable
// hook cache. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobSubmitted); ok {
		r.jobSubmitted = append(r.jobSubmitted, jobSubmittedEntry{name, h})
	}
	if h, ok := e.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := e.(JobPaused); ok {
		r.jobPaused = append(r.jobPaused, jobPausedEntry{name, h})
	}
	if h, ok := e.(JobResumed); ok {
		r.jobResumed = append(r.jobResumed, jobResumedEntry{name, h})
	}
	if h, ok := e.(JobCancelled); ok {
		r.jobCancelled = append(r.jobCancelled, jobCancelledEntry{name, h})
	}
	if h, ok := e.(JobSucceeded); ok {
		r.jobSucceeded = append(r.jobSucceeded, jobSucceededEntry{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, h})
	}
	if h, ok := e.(JobRetrying); ok {
		r.jobRetrying = append(r.jobRetrying, jobRetryingEntry{name, h})
	}
	if h, ok := e.(JobResubmitted); ok {
		r.jobResubmitted = append(r.jobResubmitted, jobResubmittedEntry{name, h})
	}
	if h, ok := e.(JobPruned); ok {
		r.jobPruned = append(r.jobPruned, jobPrunedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions, in registration order.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitJobSubmitted notifies all extensions that implement JobSubmitted.
func (r *Registry) EmitJobSubmitted(ctx context.Context, j JobInfo) {
	for _, e := range r.jobSubmitted {
		if err := e.hook.OnJobSubmitted(ctx, j); err != nil {
			r.logHookError("OnJobSubmitted", e.name, err)
		}
	}
}

// EmitJobStarted notifies all extensions that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, j JobInfo) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, j); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobPaused notifies all extensions that implement JobPaused.
func (r *Registry) EmitJobPaused(ctx context.Context, j JobInfo) {
	for _, e := range r.jobPaused {
		if err := e.hook.OnJobPaused(ctx, j); err != nil {
			r.logHookError("OnJobPaused", e.name, err)
		}
	}
}

// EmitJobResumed notifies all extensions that implement JobResumed.
func (r *Registry) EmitJobResumed(ctx context.Context, j JobInfo) {
	for _, e := range r.jobResumed {
		if err := e.hook.OnJobResumed(ctx, j); err != nil {
			r.logHookError("OnJobResumed", e.name, err)
		}
	}
}

// EmitJobCancelled notifies all extensions that implement JobCancelled.
func (r *Registry) EmitJobCancelled(ctx context.Context, j JobInfo) {
	for _, e := range r.jobCancelled {
		if err := e.hook.OnJobCancelled(ctx, j); err != nil {
			r.logHookError("OnJobCancelled", e.name, err)
		}
	}
}

// EmitJobSucceeded notifies all extensions that implement JobSucceeded.
func (r *Registry) EmitJobSucceeded(ctx context.Context, j JobInfo, elapsed time.Duration) {
	for _, e := range r.jobSucceeded {
		if err := e.hook.OnJobSucceeded(ctx, j, elapsed); err != nil {
			r.logHookError("OnJobSucceeded", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, j JobInfo, jobErr error) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, j, jobErr); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitJobRetrying notifies all extensions that implement JobRetrying.
func (r *Registry) EmitJobRetrying(ctx context.Context, j JobInfo, nextRunAt time.Time) {
	for _, e := range r.jobRetrying {
		if err := e.hook.OnJobRetrying(ctx, j, nextRunAt); err != nil {
			r.logHookError("OnJobRetrying", e.name, err)
		}
	}
}

// EmitJobResubmitted notifies all extensions that implement JobResubmitted.
func (r *Registry) EmitJobResubmitted(ctx context.Context, j JobInfo) {
	for _, e := range r.jobResubmitted {
		if err := e.hook.OnJobResubmitted(ctx, j); err != nil {
			r.logHookError("OnJobResubmitted", e.name, err)
		}
	}
}

// EmitJobPruned notifies all extensions that implement JobPruned.
func (r *Registry) EmitJobPruned(ctx context.Context, j JobInfo) {
	for _, e := range r.jobPruned {
		if err := e.hook.OnJobPruned(ctx, j); err != nil {
			r.logHookError("OnJobPruned", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the engine.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
