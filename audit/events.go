package audit

// Event actions. Each constant corresponds to one hooks lifecycle event
// and becomes the Action field of the recorded audit event.
const (
	ActionJobSubmitted   = "job.submitted"
	ActionJobStarted     = "job.started"
	ActionJobPaused      = "job.paused"
	ActionJobResumed     = "job.resumed"
	ActionJobCancelled   = "job.cancelled"
	ActionJobSucceeded   = "job.succeeded"
	ActionJobFailed      = "job.failed"
	ActionJobRetrying    = "job.retrying"
	ActionJobResubmitted = "job.resubmitted"
	ActionJobPruned      = "job.pruned"
)

// Category groups every job action under one resource category.
const Category = "jobengine.job"

// Resource is the Resource field recorded for every event this
// extension emits.
const Resource = "job"

// Severity levels, mirroring common audit trail conventions.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobSubmitted,
		ActionJobStarted,
		ActionJobPaused,
		ActionJobResumed,
		ActionJobCancelled,
		ActionJobSucceeded,
		ActionJobFailed,
		ActionJobRetrying,
		ActionJobResubmitted,
		ActionJobPruned,
	}
}
