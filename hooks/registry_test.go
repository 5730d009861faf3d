package hooks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orthanc-go/jobengine/hooks"
	"github.com/orthanc-go/jobengine/id"
)

type recordingExtension struct {
	name      string
	submitted []hooks.JobInfo
	failedErr error
}

func (e *recordingExtension) Name() string { return e.name }

func (e *recordingExtension) OnJobSubmitted(ctx context.Context, j hooks.JobInfo) error {
	e.submitted = append(e.submitted, j)
	return nil
}

func (e *recordingExtension) OnJobFailed(ctx context.Context, j hooks.JobInfo, err error) error {
	e.failedErr = err
	return nil
}

type erroringExtension struct{}

func (erroringExtension) Name() string { return "erroring" }

func (erroringExtension) OnJobSubmitted(ctx context.Context, j hooks.JobInfo) error {
	return errors.New("boom")
}

func TestRegistryDispatchesOnlyToImplementedHooks(t *testing.T) {
	r := hooks.NewRegistry(nil)
	ext := &recordingExtension{name: "recorder"}
	r.Register(ext)

	info := hooks.JobInfo{ID: id.New(), Priority: 5, State: "Pending"}
	r.EmitJobSubmitted(context.Background(), info)
	if len(ext.submitted) != 1 {
		t.Fatalf("expected 1 submitted event, got %d", len(ext.submitted))
	}

	r.EmitJobFailed(context.Background(), info, errors.New("bad"))
	if ext.failedErr == nil {
		t.Fatal("expected OnJobFailed to be called")
	}

	// Events with no implementing extension are simply no-ops.
	r.EmitJobSucceeded(context.Background(), info, time.Second)
}

func TestRegistrySwallowsHookErrors(t *testing.T) {
	r := hooks.NewRegistry(nil)
	r.Register(erroringExtension{})

	// Must not panic or propagate; the error only reaches the logger.
	r.EmitJobSubmitted(context.Background(), hooks.JobInfo{ID: id.New()})
}

func TestExtensionsReturnsRegistrationOrder(t *testing.T) {
	r := hooks.NewRegistry(nil)
	a := &recordingExtension{name: "a"}
	b := &recordingExtension{name: "b"}
	r.Register(a)
	r.Register(b)

	got := r.Extensions()
	if len(got) != 2 || got[0].Name() != "a" || got[1].Name() != "b" {
		t.Fatalf("unexpected extension order: %v", got)
	}
}
