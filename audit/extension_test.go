package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/orthanc-go/jobengine/audit"
	"github.com/orthanc-go/jobengine/hooks"
	"github.com/orthanc-go/jobengine/id"
)

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (m *mockRecorder) Record(_ context.Context, evt *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) findByAction(action string) *audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

func newTestJobInfo() hooks.JobInfo {
	return hooks.JobInfo{
		ID:       id.New(),
		Priority: 5,
		State:    "Running",
		Progress: 0.5,
	}
}

func TestExtensionName(t *testing.T) {
	e := audit.New(&mockRecorder{})
	if e.Name() != "audit" {
		t.Errorf("Name: want %q, got %q", "audit", e.Name())
	}
}

func TestExtensionJobSubmitted(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	j := newTestJobInfo()

	if err := e.OnJobSubmitted(context.Background(), j); err != nil {
		t.Fatalf("OnJobSubmitted: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != audit.ActionJobSubmitted {
		t.Errorf("Action: want %q, got %q", audit.ActionJobSubmitted, evt.Action)
	}
	if evt.Resource != audit.Resource {
		t.Errorf("Resource: want %q, got %q", audit.Resource, evt.Resource)
	}
	if evt.Category != audit.Category {
		t.Errorf("Category: want %q, got %q", audit.Category, evt.Category)
	}
	if evt.ResourceID != j.ID.String() {
		t.Errorf("ResourceID: want %q, got %q", j.ID.String(), evt.ResourceID)
	}
	if evt.Severity != audit.SeverityInfo {
		t.Errorf("Severity: want %q, got %q", audit.SeverityInfo, evt.Severity)
	}
	if evt.Metadata["priority"] != 5 {
		t.Errorf("Metadata[priority]: want 5, got %v", evt.Metadata["priority"])
	}
}

func TestExtensionJobSucceeded(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	j := newTestJobInfo()
	elapsed := 150 * time.Millisecond

	if err := e.OnJobSucceeded(context.Background(), j, elapsed); err != nil {
		t.Fatalf("OnJobSucceeded: %v", err)
	}

	evt := rec.last()
	if evt.Action != audit.ActionJobSucceeded {
		t.Errorf("Action: want %q, got %q", audit.ActionJobSucceeded, evt.Action)
	}
	if evt.Outcome != audit.OutcomeSuccess {
		t.Errorf("Outcome: want %q, got %q", audit.OutcomeSuccess, evt.Outcome)
	}
	if evt.Metadata["elapsed_ms"] != elapsed.Milliseconds() {
		t.Errorf("Metadata[elapsed_ms]: want %d, got %v", elapsed.Milliseconds(), evt.Metadata["elapsed_ms"])
	}
}

func TestExtensionJobFailed(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	j := newTestJobInfo()
	jobErr := errors.New("connection timeout")

	if err := e.OnJobFailed(context.Background(), j, jobErr); err != nil {
		t.Fatalf("OnJobFailed: %v", err)
	}

	evt := rec.last()
	if evt.Action != audit.ActionJobFailed {
		t.Errorf("Action: want %q, got %q", audit.ActionJobFailed, evt.Action)
	}
	if evt.Severity != audit.SeverityCritical {
		t.Errorf("Severity: want %q, got %q", audit.SeverityCritical, evt.Severity)
	}
	if evt.Outcome != audit.OutcomeFailure {
		t.Errorf("Outcome: want %q, got %q", audit.OutcomeFailure, evt.Outcome)
	}
	if evt.Reason != "connection timeout" {
		t.Errorf("Reason: want %q, got %q", "connection timeout", evt.Reason)
	}
}

func TestExtensionJobRetrying(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	j := newTestJobInfo()
	nextRun := time.Now().Add(30 * time.Second)

	if err := e.OnJobRetrying(context.Background(), j, nextRun); err != nil {
		t.Fatalf("OnJobRetrying: %v", err)
	}

	evt := rec.last()
	if evt.Action != audit.ActionJobRetrying {
		t.Errorf("Action: want %q, got %q", audit.ActionJobRetrying, evt.Action)
	}
	if evt.Severity != audit.SeverityWarning {
		t.Errorf("Severity: want %q, got %q", audit.SeverityWarning, evt.Severity)
	}
}

func TestExtensionJobCancelled(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	j := newTestJobInfo()

	if err := e.OnJobCancelled(context.Background(), j); err != nil {
		t.Fatalf("OnJobCancelled: %v", err)
	}

	evt := rec.last()
	if evt.Action != audit.ActionJobCancelled {
		t.Errorf("Action: want %q, got %q", audit.ActionJobCancelled, evt.Action)
	}
	if evt.Severity != audit.SeverityWarning {
		t.Errorf("Severity: want %q, got %q", audit.SeverityWarning, evt.Severity)
	}
}

func TestExtensionWithActionsFiltersDisabled(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec, audit.WithActions(audit.ActionJobSucceeded, audit.ActionJobFailed))
	j := newTestJobInfo()
	ctx := context.Background()

	if err := e.OnJobSubmitted(ctx, j); err != nil {
		t.Fatalf("OnJobSubmitted: %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("expected 0 events (submitted disabled), got %d", rec.count())
	}

	if err := e.OnJobSucceeded(ctx, j, 50*time.Millisecond); err != nil {
		t.Fatalf("OnJobSucceeded: %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("expected 1 event, got %d", rec.count())
	}
}

func TestRecorderFunc(t *testing.T) {
	var captured *audit.Event
	fn := audit.RecorderFunc(func(_ context.Context, evt *audit.Event) error {
		captured = evt
		return nil
	})

	e := audit.New(fn)
	j := newTestJobInfo()

	if err := e.OnJobSubmitted(context.Background(), j); err != nil {
		t.Fatalf("OnJobSubmitted: %v", err)
	}
	if captured == nil {
		t.Fatal("RecorderFunc was not called")
	}
	if captured.Action != audit.ActionJobSubmitted {
		t.Errorf("Action: want %q, got %q", audit.ActionJobSubmitted, captured.Action)
	}
}

func TestExtensionRecorderErrorDoesNotPropagate(t *testing.T) {
	failing := audit.RecorderFunc(func(_ context.Context, _ *audit.Event) error {
		return errors.New("audit backend down")
	})

	e := audit.New(failing)
	j := newTestJobInfo()

	if err := e.OnJobSubmitted(context.Background(), j); err != nil {
		t.Fatalf("expected no error (audit failure swallowed), got: %v", err)
	}
}

func TestExtensionViaRegistry(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	logger := slog.Default()

	reg := hooks.NewRegistry(logger)
	reg.Register(e)

	ctx := context.Background()
	j := newTestJobInfo()

	reg.EmitJobSubmitted(ctx, j)
	reg.EmitJobStarted(ctx, j)
	reg.EmitJobPaused(ctx, j)
	reg.EmitJobResumed(ctx, j)
	reg.EmitJobCancelled(ctx, j)
	reg.EmitJobSucceeded(ctx, j, time.Second)
	reg.EmitJobFailed(ctx, j, errors.New("fail"))
	reg.EmitJobRetrying(ctx, j, time.Now())
	reg.EmitJobResubmitted(ctx, j)
	reg.EmitJobPruned(ctx, j)

	allActions := audit.AllActions()
	if rec.count() != len(allActions) {
		t.Fatalf("expected %d events, got %d", len(allActions), rec.count())
	}
	for _, action := range allActions {
		if rec.findByAction(action) == nil {
			t.Errorf("missing event for action %q", action)
		}
	}
}

func TestAllActions(t *testing.T) {
	actions := audit.AllActions()
	if len(actions) != 10 {
		t.Errorf("expected 10 actions, got %d", len(actions))
	}
}
