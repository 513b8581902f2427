package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loom/internal/jobs"
	"loom/internal/retry"
)

// Claim transitions a waiting job to active on behalf of a worker. The CAS
// guard means two workers racing for the same job see exactly one winner;
// the loser gets ErrStale and moves on.
func (s *Store) Claim(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Status != StatusWaiting {
		return fmt.Errorf("%w: claim from %s", ErrInvalidTransition, job.Status)
	}
	now := s.now().UTC()
	job.Status = StatusActive
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	job.LastHeartbeat = &now
	job.NextAttemptAt = nil
	return s.Update(ctx, job)
}

// MarkCompleted finishes an active job and records its result. FinishedAt is
// set exactly once; completed jobs never transition again.
func (s *Store) MarkCompleted(ctx context.Context, job *Job, result []byte) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Status != StatusActive {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, job.Status)
	}
	now := s.now().UTC()
	job.Status = StatusCompleted
	job.Result = result
	job.FinishedAt = &now
	job.FailedReason = ""
	job.LastHeartbeat = nil
	return s.Update(ctx, job)
}

// RequeueForRetry returns a failed-but-retryable active job to waiting with
// an incremented attempt count and an exponential next-attempt delay.
func (s *Store) RequeueForRetry(ctx context.Context, job *Job, reason string) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Status != StatusActive {
		return fmt.Errorf("%w: requeue from %s", ErrInvalidTransition, job.Status)
	}
	job.Attempts++
	delay := retry.BackoffDelay(job.Attempts, job.BackoffBase, job.BackoffMax)
	next := s.now().UTC().Add(delay)

	job.Status = StatusWaiting
	job.NextAttemptAt = &next
	job.FailedReason = strings.TrimSpace(reason)
	job.LastHeartbeat = nil
	return s.Update(ctx, job)
}

// MarkFailed terminally fails a job. FinishedAt and FailedReason are set
// exactly once on this transition.
func (s *Store) MarkFailed(ctx context.Context, job *Job, reason string) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, job.Status)
	}
	if job.Status == StatusActive {
		job.Attempts++
	}
	now := s.now().UTC()
	job.Status = StatusFailed
	job.FinishedAt = &now
	job.FailedReason = strings.TrimSpace(reason)
	job.LastHeartbeat = nil
	job.NextAttemptAt = nil
	return s.Update(ctx, job)
}

// CompleteFromWaiting drives a waiting job directly to completed without a
// worker claiming it. The review gate uses this for approvals: the human
// decision is the processing.
func (s *Store) CompleteFromWaiting(ctx context.Context, job *Job, payload, result []byte) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Status != StatusWaiting {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, job.Status)
	}
	now := s.now().UTC()
	if len(payload) > 0 {
		job.Payload = payload
	}
	job.Status = StatusCompleted
	job.Result = result
	job.StartedAt = &now
	job.FinishedAt = &now
	job.FailedReason = ""
	job.NextAttemptAt = nil
	return s.Update(ctx, job)
}

// PatchParentPayload merges a completed child's result into its parent's
// payload under the child's type key, so the parent starts with its
// predecessor's output in hand. Safe to call for root jobs (no-op). Retries
// on CAS conflicts since the parent may be concurrently patched by siblings.
func (s *Store) PatchParentPayload(ctx context.Context, child *Job) error {
	if child == nil {
		return errors.New("job is nil")
	}
	if child.ParentID == nil {
		return nil
	}
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		parent, err := s.GetByID(ctx, *child.ParentID)
		if err != nil {
			return fmt.Errorf("load parent: %w", err)
		}
		if parent.Status.IsTerminal() {
			return nil
		}
		patched, err := jobs.InjectInput(parent.Payload, child.Type, child.Result)
		if err != nil {
			return fmt.Errorf("merge child result: %w", err)
		}
		parent.Payload = patched
		err = s.Update(ctx, parent)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStale) {
			return err
		}
	}
	return fmt.Errorf("%w: patch parent of job %d", ErrStale, child.ID)
}
