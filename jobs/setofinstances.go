package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InstanceHandler handles one opaque instance identifier for a
// SetOfInstancesJob. Concrete jobs (StoreInstancesJob,
// ResourceModificationJob, ...) implement this to plug their own
// per-instance behavior into the shared stepping/permissive/progress
// machinery.
type InstanceHandler interface {
	HandleInstance(ctx context.Context, instance string) error
}

// TrailingStepHandler is an optional extension of InstanceHandler for
// jobs that run one finalization step after every instance has been
// processed (e.g. committing a modified series).
type TrailingStepHandler interface {
	HandleTrailingStep(ctx context.Context) error
}

// SetOfInstancesJob iterates a fixed ordered sequence of opaque
// instance identifiers plus an optional trailing finalization step. It
// is meant to be embedded by a concrete job type that supplies an
// InstanceHandler (see StoreInstancesJob, ResourceModificationJob).
//
// In permissive mode a failing instance is recorded in the failed set
// and iteration continues; the job still reports overall Success, with
// the failed set surfaced in FormatStatus (see the Open Question this
// preserves from the source specification). In non-permissive mode the
// first failing instance terminates the job as Failure.
type SetOfInstancesJob struct {
	mu sync.Mutex

	jobType         string
	handler         InstanceHandler
	trailing        TrailingStepHandler
	hasTrailingStep bool
	trailingDone    bool

	instances       []string
	permissive      bool
	position        int
	failedInstances map[string]struct{}
	description     string
}

// NewSetOfInstancesJob creates a SetOfInstancesJob. jobType is the tag
// recorded in Serialize's snapshot (e.g. "StoreInstances"). handler
// processes each instance; if hasTrailingStep is true, handler must
// also implement TrailingStepHandler (verified with a type assertion,
// not the compiler, since the handler is supplied as an
// InstanceHandler).
func NewSetOfInstancesJob(jobType string, handler InstanceHandler, hasTrailingStep bool) *SetOfInstancesJob {
	j := &SetOfInstancesJob{
		jobType:         jobType,
		handler:         handler,
		hasTrailingStep: hasTrailingStep,
		failedInstances: make(map[string]struct{}),
	}
	if hasTrailingStep {
		if t, ok := handler.(TrailingStepHandler); ok {
			j.trailing = t
		}
	}
	return j
}

// AddInstance appends an instance identifier to the ordered work list.
// Must be called before the job starts executing.
func (j *SetOfInstancesJob) AddInstance(instance string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.instances = append(j.instances, instance)
}

// SetPermissive configures whether a failing instance aborts the job
// (false, the default) or is recorded and skipped (true).
func (j *SetOfInstancesJob) SetPermissive(permissive bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.permissive = permissive
}

// IsPermissive reports the current permissive setting.
func (j *SetOfInstancesJob) IsPermissive() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.permissive
}

// SetDescription sets the human-readable description surfaced in status.
func (j *SetOfInstancesJob) SetDescription(description string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.description = description
}

// Describe implements jobs.Describer.
func (j *SetOfInstancesJob) Describe() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.description
}

// Position returns the index of the next instance to be processed.
func (j *SetOfInstancesJob) Position() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.position
}

// InstancesCount returns the number of instances registered.
func (j *SetOfInstancesJob) InstancesCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.instances)
}

// StepsCount returns the total number of steps, including the trailing
// step if present.
func (j *SetOfInstancesJob) StepsCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stepsCountLocked()
}

func (j *SetOfInstancesJob) stepsCountLocked() int {
	n := len(j.instances)
	if j.hasTrailingStep {
		n++
	}
	return n
}

// Reset returns the job to position 0 so it can be fully re-executed
// after a Resubmit. The failed-instance set is cleared.
func (j *SetOfInstancesJob) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.position = 0
	j.trailingDone = false
	j.failedInstances = make(map[string]struct{})
}

// FailedInstances returns the sorted list of instances that failed
// while in permissive mode.
func (j *SetOfInstancesJob) FailedInstances() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.failedInstances))
	for inst := range j.failedInstances {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

// IsFailedInstance reports whether the given instance was recorded as
// failed during a permissive run.
func (j *SetOfInstancesJob) IsFailedInstance(instance string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.failedInstances[instance]
	return ok
}

// GetProgress implements Job. Progress is position / total steps.
func (j *SetOfInstancesJob) GetProgress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	total := j.stepsCountLocked()
	if total == 0 {
		return 1
	}
	return float64(j.position) / float64(total)
}

// ExecuteStep implements Job. It processes exactly one instance (or the
// trailing step) per call.
func (j *SetOfInstancesJob) ExecuteStep(ctx context.Context) (StepResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.position < len(j.instances) {
		instance := j.instances[j.position]
		err := j.handler.HandleInstance(ctx, instance)
		if err != nil {
			if !j.permissive {
				return Failure(), err
			}
			j.failedInstances[instance] = struct{}{}
		}
		j.position++

		if j.position == len(j.instances) && !j.hasTrailingStep {
			return Success(), nil
		}
		return Continue(), nil
	}

	if j.hasTrailingStep && !j.trailingDone {
		j.trailingDone = true
		if j.trailing == nil {
			return Failure(), fmt.Errorf("jobs: %s declares a trailing step but its handler does not implement TrailingStepHandler", j.jobType)
		}
		if err := j.trailing.HandleTrailingStep(ctx); err != nil {
			return Failure(), err
		}
		return Success(), nil
	}

	// All steps already executed; nothing left to do.
	return Success(), nil
}

// FormatStatus implements Job.
func (j *SetOfInstancesJob) FormatStatus() (map[string]any, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	failed := make([]string, 0, len(j.failedInstances))
	for inst := range j.failedInstances {
		failed = append(failed, inst)
	}
	sort.Strings(failed)

	return map[string]any{
		"Type":            j.jobType,
		"Permissive":      j.permissive,
		"Position":        j.position,
		"InstancesCount":  len(j.instances),
		"FailedInstances": failed,
		"Description":     j.description,
	}, nil
}

// Serialize implements Serializable.
func (j *SetOfInstancesJob) Serialize() (*Snapshot, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	instances := make([]string, len(j.instances))
	copy(instances, j.instances)

	failed := make([]string, 0, len(j.failedInstances))
	for inst := range j.failedInstances {
		failed = append(failed, inst)
	}
	sort.Strings(failed)

	return &Snapshot{
		Type:            j.jobType,
		Permissive:      j.permissive,
		Position:        j.position,
		Instances:       instances,
		FailedInstances: failed,
		TrailingStep:    j.hasTrailingStep,
		Description:     j.description,
	}, true
}

// RestoreFromSnapshot replays a snapshot's bookkeeping fields onto a
// freshly constructed job of the same type. Callers reconstructing a
// job via an Unserializer entry should build the concrete job (wiring
// whatever external resources it needs) and then call this to restore
// position, permissive mode, the instance list, and the failed set.
func (j *SetOfInstancesJob) RestoreFromSnapshot(s *Snapshot) error {
	if s.Type != j.jobType {
		return fmt.Errorf("jobs: snapshot type %q does not match job type %q", s.Type, j.jobType)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.permissive = s.Permissive
	j.position = s.Position
	j.instances = append([]string(nil), s.Instances...)
	j.description = s.Description
	j.trailingDone = s.Position >= len(s.Instances) && s.TrailingStep

	j.failedInstances = make(map[string]struct{}, len(s.FailedInstances))
	for _, inst := range s.FailedInstances {
		j.failedInstances[inst] = struct{}{}
	}
	return nil
}
