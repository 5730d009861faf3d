package registry

import (
	"time"

	"github.com/orthanc-go/jobengine/ferrors"
	"github.com/orthanc-go/jobengine/jobs"
)

// handler is the registry-owned record wrapping one submitted Job with
// identity, priority, state, and bookkeeping. It is guarded entirely by
// the owning JobsRegistry's mutex; nothing outside this package holds a
// pointer to it for longer than one locked section.
type handler struct {
	id       string
	job      jobs.Job
	priority int
	state    State

	creationTime        time.Time
	lastStateChangeTime time.Time
	runtime             time.Duration
	runningSince        time.Time

	retryTime time.Time
	retries   int

	errorCode   ferrors.Code
	progress    float64
	description string

	pauseScheduled  bool
	cancelRequested bool

	lastErr error

	// done is closed exactly once, when the handler first reaches a
	// terminal state, to wake any SubmitAndWait caller. doneClosed
	// guards against a double close when a handler is resubmitted and
	// later reaches a terminal state again.
	done       chan struct{}
	doneClosed bool

	// heapIndex is maintained by container/heap; meaningless outside the
	// pending heap.
	heapIndex int
}

// closeDoneLocked closes done if it has not been closed already. Caller
// holds the registry mutex.
func (h *handler) closeDoneLocked() {
	if !h.doneClosed {
		close(h.done)
		h.doneClosed = true
	}
}

// reopenDoneLocked gives a resubmitted handler a fresh done channel so a
// future terminal transition can signal again. Caller holds the
// registry mutex.
func (h *handler) reopenDoneLocked() {
	h.done = make(chan struct{})
	h.doneClosed = false
}

// JobInfo is an immutable snapshot of a handler for external reporting.
// Obtaining one never returns a live reference into the registry.
type JobInfo struct {
	ID                  string
	Priority            int
	State               State
	ErrorCode           ferrors.Code
	CreationTime        time.Time
	LastStateChangeTime time.Time
	Runtime             time.Duration
	ETA                 time.Time
	Progress            float64
	Description         string
}

func (h *handler) snapshot(now time.Time) JobInfo {
	return JobInfo{
		ID:                  h.id,
		Priority:            h.priority,
		State:               h.state,
		ErrorCode:           h.errorCode,
		CreationTime:        h.creationTime,
		LastStateChangeTime: h.lastStateChangeTime,
		Runtime:             h.effectiveRuntime(now),
		ETA:                 h.eta(now),
		Progress:            h.progress,
		Description:         h.description,
	}
}

// effectiveRuntime returns cumulative runtime including the handler's
// currently open Running interval, if any.
func (h *handler) effectiveRuntime(now time.Time) time.Duration {
	if h.state == Running && !h.runningSince.IsZero() {
		return h.runtime + now.Sub(h.runningSince)
	}
	return h.runtime
}

// eta estimates completion time as now + (1-progress) * runtime, clamped
// so it never falls before now.
func (h *handler) eta(now time.Time) time.Time {
	remaining := time.Duration(float64(h.effectiveRuntime(now)) * (1 - h.progress))
	if remaining < 0 {
		remaining = 0
	}
	return now.Add(remaining)
}
