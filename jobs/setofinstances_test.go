package jobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/orthanc-go/jobengine/jobs"
)

type fakeStorer struct {
	fail   map[string]bool
	stored []string
	closed bool
}

func (f *fakeStorer) StoreInstance(ctx context.Context, instance string) error {
	if f.fail[instance] {
		return errors.New("store failed for " + instance)
	}
	f.stored = append(f.stored, instance)
	return nil
}

func (f *fakeStorer) Close() { f.closed = true }

func drive(t *testing.T, j jobs.Job, maxSteps int) (jobs.StepResult, error) {
	t.Helper()
	var (
		res jobs.StepResult
		err error
	)
	for i := 0; i < maxSteps; i++ {
		res, err = j.ExecuteStep(context.Background())
		if res.Outcome() != jobs.OutcomeContinue {
			return res, err
		}
	}
	t.Fatalf("job did not finish within %d steps", maxSteps)
	return res, err
}

func TestStoreInstancesJobSuccess(t *testing.T) {
	storer := &fakeStorer{fail: map[string]bool{}}
	job := jobs.NewStoreInstancesJob(storer)
	job.AddInstance("a")
	job.AddInstance("b")
	job.AddInstance("c")

	res, err := drive(t, job, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome() != jobs.OutcomeSuccess {
		t.Fatalf("outcome: got %v, want Success", res.Outcome())
	}
	if got := storer.stored; len(got) != 3 {
		t.Fatalf("stored: got %v", got)
	}
	if job.GetProgress() != 1 {
		t.Fatalf("progress: got %v, want 1", job.GetProgress())
	}
}

func TestStoreInstancesJobNonPermissiveFailsImmediately(t *testing.T) {
	storer := &fakeStorer{fail: map[string]bool{"b": true}}
	job := jobs.NewStoreInstancesJob(storer)
	job.AddInstance("a")
	job.AddInstance("b")
	job.AddInstance("c")

	res, err := drive(t, job, 10)
	if err == nil {
		t.Fatal("expected an error")
	}
	if res.Outcome() != jobs.OutcomeFailure {
		t.Fatalf("outcome: got %v, want Failure", res.Outcome())
	}
	if len(storer.stored) != 1 {
		t.Fatalf("stored: got %v, want only [a]", storer.stored)
	}
}

func TestStoreInstancesJobPermissiveContinuesPastFailure(t *testing.T) {
	storer := &fakeStorer{fail: map[string]bool{"b": true}}
	job := jobs.NewStoreInstancesJob(storer)
	job.SetPermissive(true)
	job.AddInstance("a")
	job.AddInstance("b")
	job.AddInstance("c")

	res, err := drive(t, job, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome() != jobs.OutcomeSuccess {
		t.Fatalf("outcome: got %v, want Success", res.Outcome())
	}
	if got := storer.stored; len(got) != 2 {
		t.Fatalf("stored: got %v, want [a c]", got)
	}
	if failed := job.FailedInstances(); len(failed) != 1 || failed[0] != "b" {
		t.Fatalf("failedInstances: got %v, want [b]", failed)
	}
}

func TestStoreInstancesJobReleaseResourcesClosesStorer(t *testing.T) {
	storer := &fakeStorer{fail: map[string]bool{}}
	job := jobs.NewStoreInstancesJob(storer)
	job.ReleaseResources()
	if !storer.closed {
		t.Fatal("expected storer to be closed")
	}
}

type fakeTransformer struct {
	transformed []string
	finalized   bool
	failFinal   bool
}

func (f *fakeTransformer) TransformInstance(ctx context.Context, instance string) error {
	f.transformed = append(f.transformed, instance)
	return nil
}

func (f *fakeTransformer) Finalize(ctx context.Context) error {
	f.finalized = true
	if f.failFinal {
		return errors.New("finalize failed")
	}
	return nil
}

func (f *fakeTransformer) Close() {}

func TestResourceModificationJobRunsTrailingStep(t *testing.T) {
	transformer := &fakeTransformer{}
	job := jobs.NewResourceModificationJob(transformer)
	job.AddInstance("a")
	job.AddInstance("b")

	res, err := drive(t, job, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome() != jobs.OutcomeSuccess {
		t.Fatalf("outcome: got %v, want Success", res.Outcome())
	}
	if !transformer.finalized {
		t.Fatal("expected Finalize to run")
	}
	if len(transformer.transformed) != 2 {
		t.Fatalf("transformed: got %v", transformer.transformed)
	}
}

func TestResourceModificationJobTrailingStepFailure(t *testing.T) {
	transformer := &fakeTransformer{failFinal: true}
	job := jobs.NewResourceModificationJob(transformer)
	job.AddInstance("a")

	res, err := drive(t, job, 10)
	if err == nil {
		t.Fatal("expected an error from Finalize")
	}
	if res.Outcome() != jobs.OutcomeFailure {
		t.Fatalf("outcome: got %v, want Failure", res.Outcome())
	}
}

func TestSetOfInstancesJobResetClearsFailedInstances(t *testing.T) {
	storer := &fakeStorer{fail: map[string]bool{"a": true}}
	job := jobs.NewStoreInstancesJob(storer)
	job.SetPermissive(true)
	job.AddInstance("a")

	if _, err := drive(t, job, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(job.FailedInstances()) != 1 {
		t.Fatalf("expected one failed instance before reset")
	}

	job.Reset()
	if got := job.Position(); got != 0 {
		t.Fatalf("position after reset: got %d, want 0", got)
	}
	if len(job.FailedInstances()) != 0 {
		t.Fatal("expected failed instances to be cleared after reset")
	}
}

func TestSetOfInstancesJobSerializeRoundTrip(t *testing.T) {
	storer := &fakeStorer{fail: map[string]bool{"b": true}}
	job := jobs.NewStoreInstancesJob(storer)
	job.SetPermissive(true)
	job.SetDescription("store a batch")
	job.AddInstance("a")
	job.AddInstance("b")

	if _, err := drive(t, job, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot, ok := job.Serialize()
	if !ok {
		t.Fatal("expected Serialize to succeed")
	}
	if snapshot.Type != "StoreInstances" {
		t.Fatalf("snapshot.Type: got %q", snapshot.Type)
	}
	if snapshot.Position != 2 {
		t.Fatalf("snapshot.Position: got %d, want 2", snapshot.Position)
	}
	if len(snapshot.FailedInstances) != 1 || snapshot.FailedInstances[0] != "b" {
		t.Fatalf("snapshot.FailedInstances: got %v", snapshot.FailedInstances)
	}

	reconstruct := jobs.ReconstructStoreInstancesJob(func() jobs.InstanceStorer {
		return &fakeStorer{fail: map[string]bool{}}
	})
	restored, err := reconstruct(snapshot)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if got := restored.GetProgress(); got != 1 {
		t.Fatalf("restored progress: got %v, want 1", got)
	}
}

func TestUnserializerDispatchesOnType(t *testing.T) {
	u := jobs.NewUnserializer()
	u.Register("StoreInstances", jobs.ReconstructStoreInstancesJob(func() jobs.InstanceStorer {
		return &fakeStorer{fail: map[string]bool{}}
	}))

	job, err := u.Reconstruct(&jobs.Snapshot{Type: "StoreInstances", Instances: []string{"a"}})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if job == nil {
		t.Fatal("expected a non-nil job")
	}

	if _, err := u.Reconstruct(&jobs.Snapshot{Type: "Unknown"}); err == nil {
		t.Fatal("expected an error for an unregistered type")
	}
	if _, err := u.Reconstruct(nil); err == nil {
		t.Fatal("expected an error for a nil snapshot")
	}
}
