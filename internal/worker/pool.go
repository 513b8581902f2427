package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"loom/internal/config"
	"loom/internal/jobs"
	"loom/internal/logging"
	"loom/internal/queue"
)

// ProcessorFunc handles one job and returns its JSON result. Handlers are
// supplied by external collaborators; the pool never inspects payload
// contents beyond routing by type.
type ProcessorFunc func(ctx context.Context, job *queue.Job) ([]byte, error)

// Pool pulls eligible jobs from the queue and dispatches them to registered
// processors, bounded by the configured concurrency.
type Pool struct {
	store  *queue.Store
	logger *slog.Logger

	pollInterval       time.Duration
	errorRetryInterval time.Duration
	heartbeatInterval  time.Duration
	heartbeatTimeout   time.Duration
	stageTimeout       time.Duration
	concurrency        int

	mu         sync.RWMutex
	processors map[jobs.Type]ProcessorFunc
	running    bool
	cancel     context.CancelFunc
	group      *errgroup.Group
}

// NewPool constructs a worker pool over the given store.
func NewPool(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		store:              store,
		logger:             logger.With(logging.String(logging.FieldComponent, "worker")),
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeatInterval:  time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		heartbeatTimeout:   time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
		stageTimeout:       time.Duration(cfg.Workflow.StageTimeout) * time.Second,
		concurrency:        cfg.Workflow.WorkerConcurrency,
		processors:         make(map[jobs.Type]ProcessorFunc),
	}
}

// Register binds a processor to a job type. Review jobs belong to the review
// gate and cannot take a processor; other unregistered types are simply left
// in the queue for other worker processes to claim.
func (p *Pool) Register(jobType jobs.Type, fn ProcessorFunc) error {
	if !jobType.Valid() {
		return fmt.Errorf("unknown job type %q", jobType)
	}
	if jobType == jobs.TypeReview {
		return errors.New("review jobs are decided by the review gate, not a processor")
	}
	if fn == nil {
		return errors.New("processor is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("cannot register processors while the pool is running")
	}
	p.processors[jobType] = fn
	return nil
}

// RegisteredTypes returns the job types this pool will claim.
func (p *Pool) RegisteredTypes() []jobs.Type {
	p.mu.RLock()
	defer p.mu.RUnlock()
	types := make([]jobs.Type, 0, len(p.processors))
	for _, t := range jobs.AllTypes() {
		if _, ok := p.processors[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// Start launches the worker loops plus the stale-job reclaimer. It returns
// immediately; processing continues until Stop or context cancellation.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("worker pool already running")
	}
	if len(p.processors) == 0 {
		p.mu.Unlock()
		return errors.New("no processors registered")
	}
	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	p.running = true
	p.cancel = cancel
	p.group = group
	p.mu.Unlock()

	for i := 0; i < p.concurrency; i++ {
		group.Go(func() error {
			p.runLoop(groupCtx)
			return nil
		})
	}
	group.Go(func() error {
		p.runReclaimer(groupCtx)
		return nil
	})
	return nil
}

// Stop terminates the worker loops and waits for in-flight handlers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	group := p.group
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	_ = group.Wait()
}

func (p *Pool) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.store.NextEligible(ctx, p.RegisteredTypes()...)
		if err != nil {
			p.logger.Error("failed to fetch next queue job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			p.sleep(ctx, p.errorRetryInterval)
			continue
		}
		if job == nil {
			p.sleep(ctx, p.pollInterval)
			continue
		}

		if err := p.store.Claim(ctx, job); err != nil {
			// Lost the race to another worker; move on.
			if errors.Is(err, queue.ErrStale) || errors.Is(err, queue.ErrInvalidTransition) {
				continue
			}
			p.logger.Error("failed to claim job", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
			p.sleep(ctx, p.errorRetryInterval)
			continue
		}

		p.processJob(ctx, job)
	}
}

func (p *Pool) runReclaimer(ctx context.Context) {
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cutoff := time.Now().UTC().Add(-p.heartbeatTimeout)
		reclaimed, err := p.store.ReclaimStale(ctx, cutoff)
		if err != nil {
			p.logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			continue
		}
		if reclaimed > 0 {
			p.logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
		}
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
