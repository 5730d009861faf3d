package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/orthanc-go/jobengine/ferrors"
	"github.com/orthanc-go/jobengine/jobs"
	"github.com/orthanc-go/jobengine/registry"
)

// scriptedJob returns a fixed sequence of StepResults, one per call to
// ExecuteStep, repeating the last entry if ExecuteStep is called more
// times than the script has entries.
type scriptedJob struct {
	mu       sync.Mutex
	script   []jobs.StepResult
	errs     []error
	calls    int
	progress float64
	released bool
}

func newScriptedJob(script ...jobs.StepResult) *scriptedJob {
	return &scriptedJob{script: script}
}

func (j *scriptedJob) ExecuteStep(ctx context.Context) (jobs.StepResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	i := j.calls
	if i >= len(j.script) {
		i = len(j.script) - 1
	}
	j.calls++

	var err error
	if i < len(j.errs) {
		err = j.errs[i]
	}
	return j.script[i], err
}

func (j *scriptedJob) ReleaseResources() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.released = true
}

func (j *scriptedJob) GetProgress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

func (j *scriptedJob) FormatStatus() (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

func TestPriorityOrderingAcquiresHighestFirst(t *testing.T) {
	r := registry.New()

	lowID, err := r.Submit(newScriptedJob(jobs.Success()), 1)
	if err != nil {
		t.Fatalf("Submit low: %v", err)
	}
	highID, err := r.Submit(newScriptedJob(jobs.Success()), 10)
	if err != nil {
		t.Fatalf("Submit high: %v", err)
	}
	midID, err := r.Submit(newScriptedJob(jobs.Success()), 5)
	if err != nil {
		t.Fatalf("Submit mid: %v", err)
	}

	rj, ok := r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}
	if got := rj.ID(); got != highID {
		t.Fatalf("first acquired: got %s, want highest-priority %s", got, highID)
	}
	rj.MarkSuccess()
	rj.Release()

	rj, ok = r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a second lease")
	}
	if got := rj.ID(); got != midID {
		t.Fatalf("second acquired: got %s, want mid-priority %s", got, midID)
	}
	rj.MarkSuccess()
	rj.Release()

	rj, ok = r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a third lease")
	}
	if got := rj.ID(); got != lowID {
		t.Fatalf("third acquired: got %s, want lowest-priority %s", got, lowID)
	}
	rj.MarkSuccess()
	rj.Release()

	if err := r.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestCompletedRingPrunesOldestOnOverflow(t *testing.T) {
	r := registry.New(registry.WithMaxCompletedJobs(2))

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := r.Submit(newScriptedJob(jobs.Success()), 0)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)

		rj, ok := r.Acquire(time.Second)
		if !ok {
			t.Fatalf("Acquire %d: expected a lease", i)
		}
		rj.MarkSuccess()
		rj.Release()
	}

	if _, ok := r.GetJobInfo(ids[0]); ok {
		t.Fatal("expected the oldest completed job to have been pruned")
	}
	if _, ok := r.GetJobInfo(ids[1]); !ok {
		t.Fatal("expected the second job to remain")
	}
	if _, ok := r.GetJobInfo(ids[2]); !ok {
		t.Fatal("expected the newest job to remain")
	}

	if err := r.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestSimultaneousLeasesDoNotOverlap(t *testing.T) {
	r := registry.New()

	const n = 5
	for i := 0; i < n; i++ {
		if _, err := r.Submit(newScriptedJob(jobs.Success()), i); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	var wg sync.WaitGroup
	leased := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rj, ok := r.Acquire(2 * time.Second)
			if !ok {
				return
			}
			leased <- rj.ID()
			rj.MarkSuccess()
			rj.Release()
		}()
	}
	wg.Wait()
	close(leased)

	seen := make(map[string]bool)
	count := 0
	for id := range leased {
		if seen[id] {
			t.Fatalf("job %s was leased twice", id)
		}
		seen[id] = true
		count++
	}
	if count != n {
		t.Fatalf("leased %d jobs, want %d", count, n)
	}

	if err := r.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestResubmitAfterFailureRunsAgain(t *testing.T) {
	r := registry.New()

	id, err := r.Submit(newScriptedJob(jobs.Failure()), 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rj, ok := r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}
	rj.MarkFailure(errors.New("boom"))
	rj.Release()

	state, ok := r.GetState(id)
	if !ok || state != registry.Failure {
		t.Fatalf("state after failure: got %v, %v, want Failure", state, ok)
	}

	if !r.Resubmit(id) {
		t.Fatal("Resubmit: expected the job to be found")
	}
	state, ok = r.GetState(id)
	if !ok || state != registry.Pending {
		t.Fatalf("state after resubmit: got %v, %v, want Pending", state, ok)
	}

	rj, ok = r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire after resubmit: expected a lease")
	}
	if rj.ID() != id {
		t.Fatalf("acquired %s, want resubmitted job %s", rj.ID(), id)
	}
	rj.MarkSuccess()
	rj.Release()

	state, ok = r.GetState(id)
	if !ok || state != registry.Success {
		t.Fatalf("final state: got %v, %v, want Success", state, ok)
	}

	if err := r.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestRetryCycleReturnsToPendingAfterDelay(t *testing.T) {
	r := registry.New()

	id, err := r.Submit(newScriptedJob(jobs.Success()), 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rj, ok := r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}
	rj.MarkRetry(0)
	rj.Release()

	state, ok := r.GetState(id)
	if !ok || state != registry.Retry {
		t.Fatalf("state after retry: got %v, %v, want Retry", state, ok)
	}

	r.ScheduleRetries()
	state, ok = r.GetState(id)
	if !ok || state != registry.Pending {
		t.Fatalf("state after ScheduleRetries: got %v, %v, want Pending", state, ok)
	}

	rj, ok = r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire after retry: expected a lease")
	}
	if rj.ID() != id {
		t.Fatalf("acquired %s, want retried job %s", rj.ID(), id)
	}
	rj.MarkSuccess()
	rj.Release()

	if err := r.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestRetryNotEligibleBeforeDelayElapses(t *testing.T) {
	r := registry.New()

	id, err := r.Submit(newScriptedJob(jobs.Success()), 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rj, ok := r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}
	rj.MarkRetry(time.Hour)
	rj.Release()

	r.ScheduleRetries()
	state, ok := r.GetState(id)
	if !ok || state != registry.Retry {
		t.Fatalf("state: got %v, %v, want Retry (not yet eligible)", state, ok)
	}
}

func TestPauseRunningJobParksAtStepBoundary(t *testing.T) {
	r := registry.New()

	job := newScriptedJob(jobs.Continue(), jobs.Success())
	id, err := r.Submit(job, 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rj, ok := r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}

	if !r.Pause(id) {
		t.Fatal("Pause: expected the job to be found")
	}
	if !rj.IsPauseScheduled() {
		t.Fatal("expected IsPauseScheduled to be true after Pause on a Running job")
	}

	rj.MarkPaused()
	rj.Release()

	state, ok := r.GetState(id)
	if !ok || state != registry.Paused {
		t.Fatalf("state after pause boundary: got %v, %v, want Paused", state, ok)
	}
	if !job.released {
		t.Fatal("expected ReleaseResources to have been called on pause")
	}

	if !r.Resume(id) {
		t.Fatal("Resume: expected the job to be found")
	}
	state, ok = r.GetState(id)
	if !ok || state != registry.Pending {
		t.Fatalf("state after resume: got %v, %v, want Pending", state, ok)
	}

	if err := r.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestCancelRunningJobCommitsFailureNotPaused(t *testing.T) {
	r := registry.New()

	job := newScriptedJob(jobs.Continue(), jobs.Success())
	id, err := r.Submit(job, 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rj, ok := r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}

	if !r.Cancel(id) {
		t.Fatal("Cancel: expected the job to be found")
	}

	// The worker only knows about pauseScheduled, not the distinction
	// between a pause and a cancel; it marks the job paused either way.
	rj.MarkPaused()
	rj.Release()

	state, ok := r.GetState(id)
	if !ok || state != registry.Failure {
		t.Fatalf("state after cancel: got %v, %v, want Failure", state, ok)
	}
}

func TestSubmitAndWaitReturnsResultDocumentOnSuccess(t *testing.T) {
	r := registry.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ok, doc, err := r.SubmitAndWait(context.Background(), newScriptedJob(jobs.Success()), 0)
		if err != nil {
			t.Errorf("SubmitAndWait: unexpected error: %v", err)
		}
		if !ok {
			t.Error("SubmitAndWait: expected success")
		}
		if doc["ok"] != true {
			t.Errorf("SubmitAndWait: unexpected result document: %v", doc)
		}
	}()

	rj, ok := r.Acquire(2 * time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}
	rj.MarkSuccess()
	rj.Release()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SubmitAndWait did not return after the job succeeded")
	}
}

func TestSubmitAndWaitReturnsErrorOnFailure(t *testing.T) {
	r := registry.New()

	cause := errors.New("boom")
	done := make(chan struct{})
	var gotErr error
	var gotOK bool
	go func() {
		defer close(done)
		gotOK, _, gotErr = r.SubmitAndWait(context.Background(), newScriptedJob(jobs.Failure()), 0)
	}()

	rj, ok := r.Acquire(2 * time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}
	rj.MarkFailure(cause)
	rj.Release()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SubmitAndWait did not return after the job failed")
	}
	if gotOK {
		t.Fatal("expected ok=false on failure")
	}
	if !errors.Is(gotErr, cause) {
		t.Fatalf("expected the recorded cause, got %v", gotErr)
	}
}

func TestUnknownIDsAreSilentNoMatch(t *testing.T) {
	r := registry.New()

	if r.Pause("nope") {
		t.Error("Pause: expected false for an unknown id")
	}
	if r.Resume("nope") {
		t.Error("Resume: expected false for an unknown id")
	}
	if r.Resubmit("nope") {
		t.Error("Resubmit: expected false for an unknown id")
	}
	if r.Cancel("nope") {
		t.Error("Cancel: expected false for an unknown id")
	}
	if r.SetPriority("nope", 5) {
		t.Error("SetPriority: expected false for an unknown id")
	}
	if _, ok := r.GetJobInfo("nope"); ok {
		t.Error("GetJobInfo: expected not found for an unknown id")
	}
}

func TestAcquireTimesOutWhenNothingPending(t *testing.T) {
	r := registry.New()

	start := time.Now()
	_, ok := r.Acquire(50 * time.Millisecond)
	if ok {
		t.Fatal("Acquire: expected no lease when nothing is pending")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("Acquire returned too early: %v", elapsed)
	}
}

func TestUpdateStatusRejectsOutOfRangeProgress(t *testing.T) {
	r := registry.New()

	if _, err := r.Submit(newScriptedJob(jobs.Continue()), 0); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rj, ok := r.Acquire(time.Second)
	if !ok {
		t.Fatal("Acquire: expected a lease")
	}

	for _, bad := range []float64{-0.01, 1.01, -5, 1e9} {
		err := rj.UpdateStatus(bad)
		if err == nil {
			t.Fatalf("UpdateStatus(%v): expected an error", bad)
		}
		if ferrors.CodeOf(err) != ferrors.ParameterOutOfRange {
			t.Fatalf("UpdateStatus(%v): code = %v, want ParameterOutOfRange", bad, ferrors.CodeOf(err))
		}
	}

	if err := rj.UpdateStatus(0.5); err != nil {
		t.Fatalf("UpdateStatus(0.5): unexpected error: %v", err)
	}

	info, ok := r.GetJobInfo(rj.ID())
	if !ok {
		t.Fatal("GetJobInfo: expected the job to still be known")
	}
	if info.Progress != 0.5 {
		t.Fatalf("Progress = %v, want 0.5", info.Progress)
	}

	rj.MarkSuccess()
	rj.Release()
}
