package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"loom/internal/jobs"
	"loom/internal/logging"
	"loom/internal/queue"
)

// Gate is the manual approval checkpoint. Review jobs sit waiting in the
// queue until a human decides them; no worker ever claims one.
type Gate struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewGate constructs a review gate over the given store.
func NewGate(store *queue.Store, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{
		store:  store,
		logger: logger.With(logging.String(logging.FieldComponent, "review")),
	}
}

// Pending returns all currently waiting review jobs in insertion order.
func (g *Gate) Pending(ctx context.Context) ([]*queue.Job, error) {
	return g.store.PendingReview(ctx)
}

// Approve marks the review payload approved and drives the job straight to
// completed. Approval is the processing here: the human decision completes
// the job, which unblocks the parent stage, and the approved flag travels to
// the parent through the normal result hand-off.
func (g *Gate) Approve(ctx context.Context, jobID int64) error {
	job, err := g.loadReviewJob(ctx, jobID)
	if err != nil {
		return err
	}

	env, err := jobs.DecodeEnvelope(job.Payload)
	if err != nil {
		return fmt.Errorf("decode review payload: %w", err)
	}
	var payload jobs.ReviewPayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return fmt.Errorf("decode review payload: %w", err)
		}
	}
	payload.Approved = true
	patched, err := jobs.EncodeFor(jobs.TypeReview, payload)
	if err != nil {
		return err
	}
	// Preserve inputs already handed off from completed children.
	if len(env.Inputs) > 0 {
		patchedEnv, err := jobs.DecodeEnvelope(patched)
		if err != nil {
			return err
		}
		patchedEnv.Inputs = env.Inputs
		if patched, err = json.Marshal(patchedEnv); err != nil {
			return err
		}
	}

	result, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode review result: %w", err)
	}

	if err := g.store.CompleteFromWaiting(ctx, job, patched, result); err != nil {
		return err
	}
	if err := g.store.PatchParentPayload(ctx, job); err != nil {
		g.logger.Error("failed to hand approval off to parent",
			logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
	}
	g.logger.Info("review approved",
		logging.String(logging.FieldEventType, "review_approved"),
		logging.Int64(logging.FieldJobID, job.ID),
	)
	return nil
}

// Reject terminally fails a waiting review job with the human-supplied
// reason. The rejection overrides the job's retry envelope: no automatic
// retry may resurrect it.
func (g *Gate) Reject(ctx context.Context, jobID int64, reason string) error {
	job, err := g.loadReviewJob(ctx, jobID)
	if err != nil {
		return err
	}

	failedReason := queue.RejectedReasonPrefix + strings.TrimSpace(reason)
	if err := g.store.MarkFailed(ctx, job, failedReason); err != nil {
		return err
	}
	g.logger.Info("review rejected",
		logging.String(logging.FieldEventType, "review_rejected"),
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("reason", strings.TrimSpace(reason)),
	)
	return nil
}

func (g *Gate) loadReviewJob(ctx context.Context, jobID int64) (*queue.Job, error) {
	job, err := g.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Type != jobs.TypeReview {
		return nil, fmt.Errorf("job %d is %s, not a review job", jobID, job.Type)
	}
	if job.Status != queue.StatusWaiting {
		return nil, fmt.Errorf("%w: review job %d is %s", queue.ErrInvalidTransition, jobID, job.Status)
	}
	// A decision completes or fails the review, which would unblock its
	// parent. Children still in flight make the decision premature.
	blocked, err := g.store.HasNonTerminalChildren(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("%w: review job %d still has unfinished children", queue.ErrInvalidTransition, jobID)
	}
	return job, nil
}
