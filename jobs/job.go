// Package jobs defines the Job capability — the unit of work the Job
// Engine executes — along with the step result it returns and the
// SetOfInstancesJob specialization for multi-item, permissive-aware
// jobs.
//
// A Job knows nothing about the registry that owns it. It executes one
// bounded step at a time, reports its own progress, and releases any
// external resources it is holding when asked to pause. The registry
// and engine packages own the state machine; this package only defines
// the contract a unit of work must satisfy.
package jobs

import "context"

// Job is the capability every submitted unit of work must implement.
type Job interface {
	// ExecuteStep performs one bounded unit of work and reports what
	// should happen next. A step must be interruptible at its boundary;
	// it need not be preemptible mid-step. ctx carries an optional
	// per-step deadline, set by middleware.Timeout when the engine's
	// middleware chain includes it.
	ExecuteStep(ctx context.Context) (StepResult, error)

	// ReleaseResources is called when the job transitions out of
	// Running because of a pause (never on a terminal transition or a
	// retry). Implementations must release external handles — sockets,
	// file descriptors, DICOM associations — so they can be reacquired
	// if the job resumes.
	ReleaseResources()

	// GetProgress reports completion in [0,1].
	GetProgress() float64

	// FormatStatus returns an opaque document describing the job's
	// public state, for API introspection (e.g. the body of a
	// GET /jobs/{id} response).
	FormatStatus() (map[string]any, error)
}

// Describer is implemented by jobs that can summarize their current
// activity in a short human-readable string (e.g. "storing instance 4
// of 12"). The engine polls this between steps, when implemented, and
// caches the result on the handler for cheap introspection.
type Describer interface {
	Describe() string
}

// Serializable is implemented by jobs that can describe themselves well
// enough to be reconstructed later (e.g. after a Resubmit). Jobs that
// cannot be serialized simply do not implement this interface; callers
// should type-assert for it rather than relying on a boolean return.
type Serializable interface {
	// Serialize returns a self-describing snapshot of the job's state.
	// The second return value is false if the job declines to be
	// serialized (e.g. it holds state that cannot be described).
	Serialize() (*Snapshot, bool)
}
