// Package registry implements JobsRegistry, the concurrent store at the
// heart of the job engine: submission, the priority queue, the retry
// set, the completed ring, and the state machine governing every
// handler's lifecycle.
package registry

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orthanc-go/jobengine/ferrors"
	"github.com/orthanc-go/jobengine/id"
	"github.com/orthanc-go/jobengine/jobs"

	"github.com/orthanc-go/jobengine/hooks"
)

// JobsRegistry is the concurrent store of every submitted job. One
// mutex guards all structures; every state read or write holds it.
// Workers borrow a handler's embedded Job via a RunningJob lease and
// call ExecuteStep without holding this mutex.
type JobsRegistry struct {
	mu sync.Mutex

	handlers map[string]*handler
	pending  pendingHeap
	retrySet map[string]*handler
	ring     []*handler

	maxCompletedJobs int

	// pendingSignal is closed and replaced every time new work becomes
	// eligible for the pending heap (Submit, Resume, Resubmit,
	// ScheduleRetries). Acquire callers read the current channel under
	// the mutex, then select on it outside the mutex to wait for the
	// next change without polling.
	pendingSignal chan struct{}

	logger    *slog.Logger
	hooks     *hooks.Registry
	archiver  Archiver
	publisher StatusPublisher
}

// New creates an empty JobsRegistry. Defaults: maxCompletedJobs=10,
// slog.Default() logger, no hooks/archiver/publisher.
func New(opts ...Option) *JobsRegistry {
	r := &JobsRegistry{
		handlers:         make(map[string]*handler),
		retrySet:         make(map[string]*handler),
		maxCompletedJobs: 10,
		pendingSignal:    make(chan struct{}),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// notifyPending wakes every goroutine blocked in Acquire. Caller holds
// the mutex.
func (r *JobsRegistry) notifyPending() {
	close(r.pendingSignal)
	r.pendingSignal = make(chan struct{})
}

func newHandler(job jobs.Job, priority int, now time.Time) *handler {
	return &handler{
		id:                  id.New().String(),
		job:                 job,
		priority:            priority,
		state:               Pending,
		creationTime:        now,
		lastStateChangeTime: now,
		errorCode:           ferrors.Success,
		done:                make(chan struct{}),
	}
}

// Submit creates a handler in Pending for job at priority and returns
// its id. Never blocks.
func (r *JobsRegistry) Submit(job jobs.Job, priority int) (string, error) {
	if job == nil {
		return "", ferrors.New(ferrors.NullPointer, "cannot submit a nil job")
	}

	now := time.Now().UTC()
	h := newHandler(job, priority, now)

	r.mu.Lock()
	r.handlers[h.id] = h
	heap.Push(&r.pending, h)
	r.notifyPending()
	info := h.snapshot(now)
	r.mu.Unlock()

	r.emitSubmitted(info)
	r.publish(info)
	return h.id, nil
}

// SubmitAndWait submits job and blocks the calling goroutine until it
// reaches a terminal state. On Success it returns (true, the job's
// result document, nil). On Failure it returns (false, nil, the
// recorded cause). ctx cancellation stops waiting early without
// affecting the job itself.
func (r *JobsRegistry) SubmitAndWait(ctx context.Context, job jobs.Job, priority int) (bool, map[string]any, error) {
	if job == nil {
		return false, nil, ferrors.New(ferrors.NullPointer, "cannot submit a nil job")
	}

	now := time.Now().UTC()
	h := newHandler(job, priority, now)

	r.mu.Lock()
	r.handlers[h.id] = h
	heap.Push(&r.pending, h)
	r.notifyPending()
	info := h.snapshot(now)
	r.mu.Unlock()

	r.emitSubmitted(info)
	r.publish(info)

	select {
	case <-h.done:
	case <-ctx.Done():
		return false, nil, ctx.Err()
	}

	r.mu.Lock()
	state := h.state
	lastErr := h.lastErr
	r.mu.Unlock()

	if state == Success {
		doc, err := job.FormatStatus()
		if err != nil {
			return false, nil, err
		}
		return true, doc, nil
	}
	return false, nil, lastErr
}

// ListJobs returns a snapshot of every known id. New ids arriving
// during iteration are not required to appear.
func (r *JobsRegistry) ListJobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.handlers))
	for jobID := range r.handlers {
		ids = append(ids, jobID)
	}
	return ids
}

// GetJobInfo returns a snapshot of the handler identified by jobID, or
// false if jobID is unknown.
func (r *JobsRegistry) GetJobInfo(jobID string) (JobInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handlers[jobID]
	if !ok {
		return JobInfo{}, false
	}
	return h.snapshot(time.Now().UTC()), true
}

// GetState is a fast-path query returning only the handler's state.
func (r *JobsRegistry) GetState(jobID string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handlers[jobID]
	if !ok {
		return 0, false
	}
	return h.state, true
}

// SetPriority updates jobID's priority, rebuilding the pending heap if
// it is currently Pending so ordering reflects the change. Returns
// false if jobID is unknown.
func (r *JobsRegistry) SetPriority(jobID string, priority int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handlers[jobID]
	if !ok {
		return false
	}
	h.priority = priority
	if h.state == Pending {
		r.pending.rebuild()
	}
	return true
}

// Pause transitions jobID towards Paused. Pending and Retry handlers
// pause immediately; a Running handler's pauseScheduled flag is set so
// the worker pauses it at the next step boundary. Paused/Success/
// Failure handlers are left untouched. Returns false if jobID is
// unknown.
func (r *JobsRegistry) Pause(jobID string) bool {
	r.mu.Lock()
	h, ok := r.handlers[jobID]
	if !ok {
		r.mu.Unlock()
		return false
	}

	var paused bool
	var info JobInfo
	switch h.state {
	case Pending:
		r.pending.removeHandler(h)
		r.setState(h, Paused)
		paused = true
	case Retry:
		delete(r.retrySet, jobID)
		r.setState(h, Paused)
		paused = true
	case Running:
		h.pauseScheduled = true
	default:
		// Paused, Success, Failure: no-op.
	}
	if paused {
		info = h.snapshot(time.Now().UTC())
	}
	r.mu.Unlock()

	if paused {
		r.emitPaused(info)
		r.publish(info)
	}
	return true
}

// Resume transitions jobID from Paused back to Pending. No-op (but
// found) for any other state. Returns false if jobID is unknown.
func (r *JobsRegistry) Resume(jobID string) bool {
	r.mu.Lock()
	h, ok := r.handlers[jobID]
	if !ok {
		r.mu.Unlock()
		return false
	}

	if h.state != Paused {
		r.mu.Unlock()
		return true
	}

	r.setState(h, Pending)
	heap.Push(&r.pending, h)
	r.notifyPending()
	info := h.snapshot(time.Now().UTC())
	r.mu.Unlock()

	r.emitResumed(info)
	r.publish(info)
	return true
}

// Resubmit transitions jobID from Failure back to Pending, removing it
// from the completed ring. A no-op (logged) for any other state.
// Returns false if jobID is unknown.
func (r *JobsRegistry) Resubmit(jobID string) bool {
	r.mu.Lock()
	h, ok := r.handlers[jobID]
	if !ok {
		r.mu.Unlock()
		return false
	}

	if h.state != Failure {
		r.mu.Unlock()
		r.logger.Warn("resubmit requested on a handler that is not Failure",
			slog.String("job_id", jobID), slog.String("state", h.state.String()))
		return true
	}

	r.removeFromRing(h)
	h.errorCode = ferrors.Success
	h.lastErr = nil
	h.reopenDoneLocked()
	r.setState(h, Pending)
	heap.Push(&r.pending, h)
	r.notifyPending()
	info := h.snapshot(time.Now().UTC())
	r.mu.Unlock()

	r.emitResubmitted(info)
	r.publish(info)
	return true
}

// Cancel forces jobID to Failure from any non-terminal state. A
// Running handler is marked pauseScheduled with cancellation requested,
// so the worker commits it as Failure (not Paused) at the next step
// boundary. Terminal handlers are left untouched. Returns false if
// jobID is unknown.
func (r *JobsRegistry) Cancel(jobID string) bool {
	cancelErr := ferrors.New(ferrors.InternalError, "cancelled")

	r.mu.Lock()
	h, ok := r.handlers[jobID]
	if !ok {
		r.mu.Unlock()
		return false
	}

	var cancelled bool
	var info JobInfo
	var pruned []JobInfo
	switch h.state {
	case Pending:
		r.pending.removeHandler(h)
		r.finishTerminalLocked(h, Failure, cancelErr)
		cancelled = true
	case Retry:
		delete(r.retrySet, jobID)
		r.finishTerminalLocked(h, Failure, cancelErr)
		cancelled = true
	case Paused:
		r.finishTerminalLocked(h, Failure, cancelErr)
		cancelled = true
	case Running:
		h.pauseScheduled = true
		h.cancelRequested = true
	default:
		// Success, Failure: no-op.
	}
	if cancelled {
		info = h.snapshot(time.Now().UTC())
		pruned = r.pruneLocked()
	}
	r.mu.Unlock()

	if cancelled {
		r.emitCancelled(info)
		r.publish(info)
	}
	for _, p := range pruned {
		r.emitPruned(p)
	}
	return true
}

// SetMaxCompletedJobs updates the completed-ring retention cap and
// immediately prunes excess oldest entries. A cap of 0 disables
// pruning.
func (r *JobsRegistry) SetMaxCompletedJobs(n int) {
	r.mu.Lock()
	r.maxCompletedJobs = n
	pruned := r.pruneLocked()
	r.mu.Unlock()

	for _, info := range pruned {
		r.emitPruned(info)
	}
}

// ScheduleRetries atomically moves every handler in the retry set whose
// retryTime has elapsed back into Pending.
func (r *JobsRegistry) ScheduleRetries() {
	now := time.Now().UTC()

	r.mu.Lock()
	var ready []*handler
	for jobID, h := range r.retrySet {
		if !h.retryTime.After(now) {
			delete(r.retrySet, jobID)
			ready = append(ready, h)
		}
	}
	infos := make([]JobInfo, 0, len(ready))
	for _, h := range ready {
		r.setState(h, Pending)
		heap.Push(&r.pending, h)
		infos = append(infos, h.snapshot(now))
	}
	if len(ready) > 0 {
		r.notifyPending()
	}
	r.mu.Unlock()

	for _, info := range infos {
		r.publish(info)
	}
}

// Acquire blocks until a pending handler is available, leases it by
// transitioning it to Running, and returns a RunningJob wrapping it.
// timeout bounds the wait; 0 waits indefinitely. Returns false if
// timeout elapses with no pending work.
func (r *JobsRegistry) Acquire(timeout time.Duration) (*RunningJob, bool) {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		r.mu.Lock()
		if len(r.pending) > 0 {
			h := heap.Pop(&r.pending).(*handler)
			first := h.runningSince.IsZero() && h.runtime == 0
			r.setState(h, Running)
			h.runningSince = time.Now().UTC()
			info := h.snapshot(time.Now().UTC())
			r.mu.Unlock()

			if first {
				r.emitStarted(info)
			}
			r.publish(info)
			return &RunningJob{registry: r, h: h}, true
		}
		sig := r.pendingSignal
		r.mu.Unlock()

		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, false
			}
			timer := time.NewTimer(remaining)
			select {
			case <-sig:
				timer.Stop()
			case <-timer.C:
				return nil, false
			}
		} else {
			<-sig
		}
	}
}

// CheckInvariants verifies the registry's bookkeeping is internally
// consistent: every handler is reachable from exactly one of the
// pending heap, the retry set, or the completed ring, unless it is
// Running or Paused; the completed ring never exceeds its cap; and heap indices
// agree with handler positions. It is intended for tests, not the
// production path.
func (r *JobsRegistry) CheckInvariants() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]string, len(r.handlers))
	for i, h := range r.pending {
		if h.heapIndex != i {
			return fmt.Errorf("registry: handler %s has heapIndex %d, want %d", h.id, h.heapIndex, i)
		}
		if h.state != Pending {
			return fmt.Errorf("registry: pending heap contains handler %s in state %s", h.id, h.state)
		}
		seen[h.id] = "pending"
	}
	for jobID, h := range r.retrySet {
		if h.state != Retry {
			return fmt.Errorf("registry: retry set contains handler %s in state %s", jobID, h.state)
		}
		seen[jobID] = "retry"
	}
	for _, h := range r.ring {
		if !h.state.IsTerminal() {
			return fmt.Errorf("registry: completed ring contains handler %s in state %s", h.id, h.state)
		}
		seen[h.id] = "ring"
	}
	if r.maxCompletedJobs > 0 && len(r.ring) > r.maxCompletedJobs {
		return fmt.Errorf("registry: completed ring has %d entries, exceeds cap %d", len(r.ring), r.maxCompletedJobs)
	}
	for jobID, h := range r.handlers {
		if _, ok := seen[jobID]; ok {
			continue
		}
		if h.state != Running && h.state != Paused {
			return fmt.Errorf("registry: handler %s in state %s is not in any container", jobID, h.state)
		}
	}
	return nil
}

// setState updates state and lastStateChangeTime. Caller holds the mutex.
func (r *JobsRegistry) setState(h *handler, newState State) {
	h.state = newState
	h.lastStateChangeTime = time.Now().UTC()
}

func (r *JobsRegistry) removeFromRing(h *handler) {
	for i, entry := range r.ring {
		if entry == h {
			r.ring = append(r.ring[:i], r.ring[i+1:]...)
			return
		}
	}
}

// finishTerminalLocked records a handler's terminal outcome and queues
// it onto the completed ring, pruning if necessary. Caller holds the
// mutex; hook emission for this transition is the caller's
// responsibility, done after unlocking.
func (r *JobsRegistry) finishTerminalLocked(h *handler, state State, err error) {
	h.lastErr = err
	if err == nil {
		h.errorCode = ferrors.Success
	} else {
		h.errorCode = ferrors.CodeOf(err)
	}
	r.setState(h, state)
	r.ring = append(r.ring, h)
	h.closeDoneLocked()
}

// pruneLocked drops the oldest completed entries until the ring fits
// maxCompletedJobs, handing each evicted handler to the Archiver (if
// any) while the mutex is held, and returning a snapshot of every
// evicted handler so the caller can emit hooks after unlocking. Caller
// holds the mutex.
func (r *JobsRegistry) pruneLocked() []JobInfo {
	if r.maxCompletedJobs <= 0 {
		return nil
	}

	var evicted []JobInfo
	for len(r.ring) > r.maxCompletedJobs {
		oldest := r.ring[0]
		r.ring = r.ring[1:]
		delete(r.handlers, oldest.id)

		info := oldest.snapshot(time.Now().UTC())
		if r.archiver != nil {
			var snap *jobs.Snapshot
			if s, ok := oldest.job.(jobs.Serializable); ok {
				if got, ok2 := s.Serialize(); ok2 {
					snap = got
				}
			}
			r.archiver.OnEvict(info, snap)
		}
		evicted = append(evicted, info)
	}
	return evicted
}
