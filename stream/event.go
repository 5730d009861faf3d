package stream

import (
	"time"

	"github.com/orthanc-go/jobengine/ferrors"
	"github.com/orthanc-go/jobengine/registry"
)

// StatusEvent is one point-in-time status snapshot for a job, published
// to every subscriber watching that job or the firehose topic.
type StatusEvent struct {
	// Topic is the channel this event was published on.
	Topic string `json:"topic"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// Data is the job status payload.
	Data JobStatus `json:"data"`
}

// JobStatus is the JSON-friendly projection of registry.JobInfo carried
// by a StatusEvent.
type JobStatus struct {
	JobID               string    `json:"job_id"`
	Priority            int       `json:"priority"`
	State               string    `json:"state"`
	ErrorCode           string    `json:"error_code,omitempty"`
	CreationTime        time.Time `json:"creation_time"`
	LastStateChangeTime time.Time `json:"last_state_change_time"`
	RuntimeMs           int64     `json:"runtime_ms"`
	ETA                 time.Time `json:"eta,omitempty"`
	Progress            float64   `json:"progress"`
	Description         string    `json:"description,omitempty"`
}

// newStatusEvent builds a StatusEvent for jobID from a registry
// snapshot, at the given time.
func newStatusEvent(jobID string, info registry.JobInfo, now time.Time) *StatusEvent {
	errorCode := ""
	if info.ErrorCode != ferrors.Success {
		errorCode = info.ErrorCode.String()
	}

	return &StatusEvent{
		Topic:     JobTopic(jobID),
		Timestamp: now,
		Data: JobStatus{
			JobID:               jobID,
			Priority:            info.Priority,
			State:               info.State.String(),
			ErrorCode:           errorCode,
			CreationTime:        info.CreationTime,
			LastStateChangeTime: info.LastStateChangeTime,
			RuntimeMs:           info.Runtime.Milliseconds(),
			ETA:                 info.ETA,
			Progress:            info.Progress,
			Description:         info.Description,
		},
	}
}
