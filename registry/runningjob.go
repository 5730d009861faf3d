package registry

import (
	"fmt"
	"time"

	"github.com/orthanc-go/jobengine/ferrors"
	"github.com/orthanc-go/jobengine/jobs"
)

// RunningJob is a worker's lease on a handler currently in Running,
// obtained from JobsRegistry.Acquire. A worker drives the leased Job
// through ExecuteStep, marks exactly one outcome with MarkSuccess,
// MarkFailure, MarkPaused, or MarkRetry, and then calls Release exactly
// once. Release commits the marked outcome under the registry's mutex;
// if the worker never marked one, Release defaults to Failure.
type RunningJob struct {
	registry *JobsRegistry
	h        *handler
	released bool

	kind       string
	err        error
	retryDelay time.Duration
}

// Job returns the leased unit of work.
func (rj *RunningJob) Job() jobs.Job { return rj.h.job }

// ID returns the leased handler's id.
func (rj *RunningJob) ID() string { return rj.h.id }

// IsPauseScheduled reports whether Pause or Cancel was called on this
// job while it was Running. A worker should check this between steps
// and, if true, stop stepping and call MarkPaused instead of stepping
// again.
func (rj *RunningJob) IsPauseScheduled() bool {
	rj.registry.mu.Lock()
	defer rj.registry.mu.Unlock()
	return rj.h.pauseScheduled
}

// Retries returns the handler's cumulative retry count, for a worker
// computing a backoff delay before calling MarkRetry.
func (rj *RunningJob) Retries() int {
	rj.registry.mu.Lock()
	defer rj.registry.mu.Unlock()
	return rj.h.retries
}

// UpdateStatus records progress after a step, making it visible to
// GetJobInfo and any attached StatusPublisher. progress must lie in
// [0,1]; a value outside that range is rejected with
// ferrors.ParameterOutOfRange and the handler's last known progress is
// left untouched.
func (rj *RunningJob) UpdateStatus(progress float64) error {
	if progress < 0 || progress > 1 {
		return ferrors.New(ferrors.ParameterOutOfRange, fmt.Sprintf("progress %v outside [0,1]", progress))
	}

	r := rj.registry
	h := rj.h

	r.mu.Lock()
	h.progress = progress
	info := h.snapshot(time.Now().UTC())
	r.mu.Unlock()

	r.publish(info)
	return nil
}

// SetDescription caches desc on the handler so GetJobInfo and any
// attached StatusPublisher can surface it without calling FormatStatus.
func (rj *RunningJob) SetDescription(desc string) {
	r := rj.registry
	h := rj.h

	r.mu.Lock()
	h.description = desc
	info := h.snapshot(time.Now().UTC())
	r.mu.Unlock()

	r.publish(info)
}

// Priority returns the leased handler's priority.
func (rj *RunningJob) Priority() int {
	rj.registry.mu.Lock()
	defer rj.registry.mu.Unlock()
	return rj.h.priority
}

// MarkSuccess marks the job as having finished successfully.
func (rj *RunningJob) MarkSuccess() { rj.kind = "success" }

// MarkFailure marks the job as having finished unsuccessfully with err
// as the recorded cause.
func (rj *RunningJob) MarkFailure(err error) {
	rj.kind = "failure"
	rj.err = err
}

// MarkPaused marks the job to be parked as Paused. Call this instead of
// stepping again once IsPauseScheduled reports true.
func (rj *RunningJob) MarkPaused() { rj.kind = "paused" }

// MarkRetry marks the job to be parked in the retry set, eligible once
// delay elapses.
func (rj *RunningJob) MarkRetry(delay time.Duration) {
	rj.kind = "retry"
	rj.retryDelay = delay
}

// Release commits the marked outcome and returns the handler to a
// terminal, Paused, or Retry state. Calling Release more than once is a
// no-op after the first call.
func (rj *RunningJob) Release() {
	if rj.released {
		return
	}
	rj.released = true

	r := rj.registry
	h := rj.h

	r.mu.Lock()
	cancelRequested := h.cancelRequested
	pauseScheduled := h.pauseScheduled

	if !h.runningSince.IsZero() {
		h.runtime += time.Since(h.runningSince)
		h.runningSince = time.Time{}
	}

	kind := rj.kind
	if kind == "" {
		kind = "failure"
		if rj.err == nil {
			rj.err = ferrors.New(ferrors.InternalError, "worker released a running job without committing an outcome")
		}
	}

	if cancelRequested {
		kind = "failure"
		if rj.err == nil {
			rj.err = ferrors.New(ferrors.InternalError, "cancelled")
		}
	} else if pauseScheduled && kind != "success" && kind != "failure" {
		kind = "paused"
	}

	var nextRunAt time.Time
	switch kind {
	case "success":
		r.finishTerminalLocked(h, Success, nil)
	case "failure":
		r.finishTerminalLocked(h, Failure, rj.err)
	case "paused":
		h.pauseScheduled = false
		h.cancelRequested = false
		r.setState(h, Paused)
	case "retry":
		h.retries++
		h.retryTime = time.Now().UTC().Add(rj.retryDelay)
		nextRunAt = h.retryTime
		r.setState(h, Retry)
		r.retrySet[h.id] = h
	}

	info := h.snapshot(time.Now().UTC())
	runtime := h.runtime
	var pruned []JobInfo
	if kind == "success" || kind == "failure" {
		pruned = r.pruneLocked()
	}
	r.mu.Unlock()

	if kind == "paused" {
		h.job.ReleaseResources()
	}

	switch kind {
	case "success":
		r.emitSucceeded(info, runtime)
	case "failure":
		if cancelRequested {
			r.emitCancelled(info)
		} else {
			r.emitFailed(info, rj.err)
		}
	case "paused":
		r.emitPaused(info)
	case "retry":
		r.emitRetrying(info, nextRunAt)
	}
	r.publish(info)
	for _, p := range pruned {
		r.emitPruned(p)
	}
}
