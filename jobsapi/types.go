package jobsapi

import (
	"context"
	"time"

	"github.com/orthanc-go/jobengine/jobs"
	"github.com/orthanc-go/jobengine/registry"
)

// SubmitRequest is the JSON submission body for a command-style job.
// Synchronous and Asynchronous are mutually overriding; when neither
// is set, the job type's own default (via JobFactory.DefaultSync)
// applies.
type SubmitRequest struct {
	Permissive   bool           `json:"Permissive"`
	Priority     int            `json:"Priority"`
	Synchronous  *bool          `json:"Synchronous,omitempty"`
	Asynchronous *bool          `json:"Asynchronous,omitempty"`
	Body         map[string]any `json:"-"`
}

// wantsSync resolves the effective synchronous/asynchronous choice for
// a request, falling back to defaultSync when the request leaves both
// fields unset.
func (r SubmitRequest) wantsSync(defaultSync bool) bool {
	if r.Synchronous != nil {
		return *r.Synchronous
	}
	if r.Asynchronous != nil {
		return !*r.Asynchronous
	}
	return defaultSync
}

// AsyncResponse is the body returned for an asynchronous submission.
type AsyncResponse struct {
	ID   string `json:"ID"`
	Path string `json:"Path"`
}

// NewAsyncResponse builds the standard async response for a submitted
// job id, pointing at the conventional /jobs/{id} resource path.
func NewAsyncResponse(jobID string) AsyncResponse {
	return AsyncResponse{ID: jobID, Path: "/jobs/" + jobID}
}

// JobFactory turns a submission request into a concrete jobs.Job. Each
// registered job type (a path segment like /jobs/store-instances)
// implements one factory.
type JobFactory interface {
	// NewJob builds a Job from the request body. An error here maps to
	// a BadFileFormat submission failure.
	NewJob(ctx context.Context, req SubmitRequest) (jobs.Job, error)

	// DefaultSync reports whether this job type runs synchronously by
	// default when the request specifies neither Synchronous nor
	// Asynchronous.
	DefaultSync() bool
}

// Resolve decides whether req should run synchronously against
// factory's declared default.
func Resolve(req SubmitRequest, factory JobFactory) bool {
	return req.wantsSync(factory.DefaultSync())
}

// JobInfoResponse is the JSON projection of registry.JobInfo returned
// by GET /jobs/{id} and by the expanded GET /jobs?expand listing.
type JobInfoResponse struct {
	ID                  string    `json:"ID"`
	Priority            int       `json:"Priority"`
	State               string    `json:"State"`
	ErrorCode           string    `json:"ErrorCode,omitempty"`
	CreationTime        time.Time `json:"CreationTime"`
	LastStateChangeTime time.Time `json:"LastStateChangeTime"`
	RuntimeMs           int64     `json:"RuntimeMs"`
	ETA                 time.Time `json:"ETA,omitempty"`
	Progress            float64   `json:"Progress"`
	Description         string    `json:"Description,omitempty"`
}

// NewJobInfoResponse projects a registry snapshot into its wire shape.
func NewJobInfoResponse(info registry.JobInfo) JobInfoResponse {
	return JobInfoResponse{
		ID:                  info.ID,
		Priority:            info.Priority,
		State:               info.State.String(),
		ErrorCode:           info.ErrorCode.String(),
		CreationTime:        info.CreationTime,
		LastStateChangeTime: info.LastStateChangeTime,
		RuntimeMs:           info.Runtime.Milliseconds(),
		ETA:                 info.ETA,
		Progress:            info.Progress,
		Description:         info.Description,
	}
}

// ListResponse is the body for GET /jobs without ?expand: bare ids.
type ListResponse struct {
	IDs []string `json:"IDs"`
}

// ExpandedListResponse is the body for GET /jobs?expand: full
// snapshots rather than bare ids.
type ExpandedListResponse struct {
	Jobs []JobInfoResponse `json:"Jobs"`
}
