package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/retry"
	"loom/internal/services"
)

func (p *Pool) processJob(ctx context.Context, job *queue.Job) {
	p.mu.RLock()
	processor := p.processors[job.Type]
	p.mu.RUnlock()
	if processor == nil {
		// Shouldn't happen: NextEligible is restricted to registered types.
		p.logger.Warn("claimed job without processor", logging.Int64(logging.FieldJobID, job.ID))
		return
	}

	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithStage(jobCtx, string(job.Type))
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	jobLogger := logging.WithContext(jobCtx, p.logger)

	start := time.Now()
	jobLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldJobType, string(job.Type)),
		logging.Int("attempt", job.Attempts+1),
	)

	result, execErr := p.executeWithHeartbeat(jobCtx, processor, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			jobLogger.Debug("stage interrupted by shutdown")
			return
		}
		p.handleFailure(jobCtx, jobLogger, job, execErr)
		return
	}

	// Persistence is detached from the run context: a completion that raced
	// shutdown still has to land in the store.
	persistCtx := context.WithoutCancel(jobCtx)
	if err := p.store.MarkCompleted(persistCtx, job, result); err != nil {
		jobLogger.Error("failed to persist job completion", logging.Error(err))
		return
	}
	if err := p.store.PatchParentPayload(persistCtx, job); err != nil {
		jobLogger.Error("failed to hand result off to parent", logging.Error(err))
	}
	jobLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(start)),
	)
}

// executeWithHeartbeat runs the processor under the per-job deadline while a
// sibling goroutine keeps the job's heartbeat fresh so the reclaimer leaves
// it alone.
func (p *Pool) executeWithHeartbeat(ctx context.Context, processor ProcessorFunc, job *queue.Job) ([]byte, error) {
	execCtx := ctx
	var cancelTimeout context.CancelFunc
	if p.stageTimeout > 0 {
		execCtx, cancelTimeout = context.WithTimeout(ctx, p.stageTimeout)
		defer cancelTimeout()
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go func() {
		defer hbWG.Done()
		ticker := time.NewTicker(p.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := p.store.UpdateHeartbeat(hbCtx, job.ID); err != nil {
					p.logger.Debug("heartbeat update failed", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
				}
			}
		}
	}()

	result, err := processor(execCtx, job)
	hbCancel()
	hbWG.Wait()

	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = services.Wrap(services.ErrTimeout, string(job.Type), "execute", fmt.Sprintf("stage exceeded %s deadline", p.stageTimeout), err)
	}
	return result, err
}

// handleFailure converts a processor error into a retry-or-fail decision:
// transient errors requeue with backoff while attempts remain, everything
// else fails the job permanently.
func (p *Pool) handleFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, execErr error) {
	ctx = context.WithoutCancel(ctx)
	reason := execErr.Error()
	retryable := retry.IsRetryable(execErr)
	attemptsLeft := job.Attempts+1 < job.MaxAttempts

	if retryable && attemptsLeft {
		if err := p.store.RequeueForRetry(ctx, job, reason); err != nil {
			logger.Error("failed to requeue job for retry", logging.Error(err))
			return
		}
		logger.Warn("stage failed; requeued for retry",
			logging.String(logging.FieldEventType, "stage_retry"),
			logging.Int("attempt", job.Attempts),
			logging.Int("max_attempts", job.MaxAttempts),
			logging.Error(execErr),
		)
		return
	}

	if err := p.store.MarkFailed(ctx, job, reason); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
		return
	}
	logger.Error("stage failed permanently",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Bool("retryable", retryable),
		logging.Int("attempt", job.Attempts),
		logging.Error(execErr),
	)
}
