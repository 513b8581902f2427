package api

import (
	"time"

	"loom/internal/queue"
)

// JobView is the CLI/dashboard projection of a queue job.
type JobView struct {
	ID           int64      `json:"id"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"maxAttempts"`
	Priority     int        `json:"priority"`
	ParentID     *int64     `json:"parentId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	FailedReason string     `json:"failedReason,omitempty"`
}

// NewJobView projects a job using its stored status.
func NewJobView(job *queue.Job) JobView {
	return newJobView(job, job.Status)
}

// NewHistoryView projects a job the way history presents it, with state
// derived from timestamps rather than the stored status column.
func NewHistoryView(job *queue.Job) JobView {
	return newJobView(job, job.DerivedStatus())
}

func newJobView(job *queue.Job, status queue.Status) JobView {
	if status == queue.StatusWaiting && job.IsDelayed(time.Now().UTC()) {
		status = queue.StatusDelayed
	}
	return JobView{
		ID:           job.ID,
		Type:         string(job.Type),
		Status:       string(status),
		Attempts:     job.Attempts,
		MaxAttempts:  job.MaxAttempts,
		Priority:     job.Priority,
		ParentID:     job.ParentID,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
		FailedReason: job.FailedReason,
	}
}
