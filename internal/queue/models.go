package queue

import (
	"strings"
	"time"

	"loom/internal/jobs"
)

// Status represents the stored lifecycle state of a queue job.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	// StatusDelayed is a derived presentation state: a waiting job whose
	// next attempt lies in the future. It is never stored.
	StatusDelayed Status = "delayed"
)

// RejectedReasonPrefix marks terminal failures originating from a human
// review decision rather than exhausted retries.
const RejectedReasonPrefix = "Rejected: "

var allStatuses = []Status{
	StatusWaiting,
	StatusActive,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of stored statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known stored Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job represents a queue job persisted in SQLite.
//
// Version implements optimistic concurrency: every mutation compares and
// bumps it, so a dashboard operator approving a job and a worker failing it
// at the same instant cannot silently overwrite each other.
type Job struct {
	ID            int64
	Type          jobs.Type
	Payload       []byte
	Result        []byte
	Status        Status
	Priority      int
	Attempts      int
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	NextAttemptAt *time.Time
	ParentID      *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	FailedReason  string
	LastHeartbeat *time.Time
	Version       int64
}

// IsDelayed reports whether a waiting job is deferred past the given moment.
func (j *Job) IsDelayed(now time.Time) bool {
	return j.Status == StatusWaiting && j.NextAttemptAt != nil && j.NextAttemptAt.After(now)
}

// Rejected reports whether the job was terminally failed by a human review
// decision.
func (j *Job) Rejected() bool {
	return j.Status == StatusFailed && strings.HasPrefix(j.FailedReason, RejectedReasonPrefix)
}

// DerivedStatus reconstructs a job's state from its timestamps alone, the
// way history views present it: a finish time with a failure reason means
// failed, a finish time alone means completed, a start time means active,
// anything else is waiting.
func (j *Job) DerivedStatus() Status {
	switch {
	case j.FinishedAt != nil && j.FailedReason != "":
		return StatusFailed
	case j.FinishedAt != nil:
		return StatusCompleted
	case j.StartedAt != nil:
		return StatusActive
	default:
		return StatusWaiting
	}
}

// HealthSummary describes aggregated queue counts per lifecycle state.
// Waiting excludes delayed jobs; the five buckets always sum to Total.
type HealthSummary struct {
	Total     int
	Waiting   int
	Active    int
	Completed int
	Failed    int
	Delayed   int
}

// FlowNode describes one job in a dependency tree submitted atomically.
// Children must reach a terminal state before the node itself becomes
// eligible to run.
type FlowNode struct {
	Type     jobs.Type
	Payload  []byte
	Priority int
	Delay    time.Duration
	Children []FlowNode
}
