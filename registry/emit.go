package registry

import (
	"context"
	"time"

	"github.com/orthanc-go/jobengine/hooks"
	"github.com/orthanc-go/jobengine/id"
)

// toHookInfo adapts a JobInfo snapshot to the read-only view passed to
// extension hooks. The conversion is lossy on purpose: extensions see
// only what the hooks package contract promises.
func toHookInfo(info JobInfo) hooks.JobInfo {
	jobID, _ := id.Parse(info.ID)
	return hooks.JobInfo{
		ID:          jobID,
		Priority:    info.Priority,
		State:       info.State.String(),
		Progress:    info.Progress,
		Description: info.Description,
	}
}

func (r *JobsRegistry) emitSubmitted(info JobInfo) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobSubmitted(context.Background(), toHookInfo(info))
}

func (r *JobsRegistry) emitStarted(info JobInfo) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobStarted(context.Background(), toHookInfo(info))
}

func (r *JobsRegistry) emitPaused(info JobInfo) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobPaused(context.Background(), toHookInfo(info))
}

func (r *JobsRegistry) emitResumed(info JobInfo) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobResumed(context.Background(), toHookInfo(info))
}

func (r *JobsRegistry) emitCancelled(info JobInfo) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobCancelled(context.Background(), toHookInfo(info))
}

func (r *JobsRegistry) emitSucceeded(info JobInfo, elapsed time.Duration) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobSucceeded(context.Background(), toHookInfo(info), elapsed)
}

func (r *JobsRegistry) emitFailed(info JobInfo, err error) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobFailed(context.Background(), toHookInfo(info), err)
}

func (r *JobsRegistry) emitRetrying(info JobInfo, nextRunAt time.Time) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobRetrying(context.Background(), toHookInfo(info), nextRunAt)
}

func (r *JobsRegistry) emitResubmitted(info JobInfo) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobResubmitted(context.Background(), toHookInfo(info))
}

func (r *JobsRegistry) emitPruned(info JobInfo) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitJobPruned(context.Background(), toHookInfo(info))
}

// publish notifies the status publisher, if any, of info's current
// state. Called after every status-affecting transition.
func (r *JobsRegistry) publish(info JobInfo) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(info.ID, info)
}

// Shutdown notifies every registered extension implementing
// hooks.Shutdown (e.g. a stream.Broker closing its subscribers) that
// the engine driving this registry is stopping. A no-op when no hooks
// registry is attached. Intended to be called once, from
// engine.JobsEngine.Stop, after the worker pool has drained.
func (r *JobsRegistry) Shutdown(ctx context.Context) {
	if r.hooks == nil {
		return
	}
	r.hooks.EmitShutdown(ctx)
}
