package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"loom/internal/config"
	"loom/internal/flow"
	"loom/internal/jobs"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/review"
	"loom/internal/worker"
)

// Orchestrator owns the queue store, worker pool, and review gate, and is
// the single surface collaborators (daemon, CLI, dashboard) talk to. It is
// constructed once, passed by reference, and explicitly closed; there is no
// process-wide connection cache.
type Orchestrator struct {
	cfg    *config.Config
	store  *queue.Store
	pool   *worker.Pool
	gate   *review.Gate
	logger *slog.Logger

	mu       sync.Mutex
	started  bool
	shutdown bool
}

// New constructs an orchestrator over an opened store.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  store,
		pool:   worker.NewPool(cfg, store, logger),
		gate:   review.NewGate(store, logger),
		logger: logger.With(logging.String(logging.FieldComponent, "orchestrator")),
	}
}

// Store exposes the underlying queue store for read-only views.
func (o *Orchestrator) Store() *queue.Store {
	return o.store
}

// Register binds a processor to a job type. Must be called before Start.
func (o *Orchestrator) Register(jobType jobs.Type, fn worker.ProcessorFunc) error {
	return o.pool.Register(jobType, fn)
}

// AddJob enqueues a single job after validating the payload tag against the
// job type at this boundary.
func (o *Orchestrator) AddJob(ctx context.Context, jobType jobs.Type, payload jobs.Payload, opts queue.EnqueueOptions) (*queue.Job, error) {
	encoded, err := jobs.EncodeFor(jobType, payload)
	if err != nil {
		return nil, err
	}
	return o.store.Enqueue(ctx, jobType, encoded, opts)
}

// AddJobRaw enqueues a job whose payload envelope was produced elsewhere
// (CLI JSON input). The tag invariant is still enforced by the store.
func (o *Orchestrator) AddJobRaw(ctx context.Context, jobType jobs.Type, payload []byte, opts queue.EnqueueOptions) (*queue.Job, error) {
	return o.store.Enqueue(ctx, jobType, payload, opts)
}

// SchedulePipeline submits the full seven-stage flow atomically and returns
// every job id in the tree, root first.
func (o *Orchestrator) SchedulePipeline(ctx context.Context, req flow.Request) ([]int64, error) {
	ids, err := flow.SchedulePipeline(ctx, o.store, req)
	if err != nil {
		return nil, err
	}
	o.logger.Info("pipeline scheduled",
		logging.String(logging.FieldEventType, "pipeline_scheduled"),
		logging.Int("jobs", len(ids)),
		logging.Int64("root_id", ids[0]),
	)
	return ids, nil
}

// Health returns a point-in-time snapshot of queue counts.
func (o *Orchestrator) Health(ctx context.Context) (queue.HealthSummary, error) {
	return o.store.Health(ctx)
}

// History returns the most recently created jobs, newest first.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]*queue.Job, error) {
	return o.store.History(ctx, limit)
}

// ReviewQueue lists review jobs awaiting a human decision.
func (o *Orchestrator) ReviewQueue(ctx context.Context) ([]*queue.Job, error) {
	return o.gate.Pending(ctx)
}

// Approve applies a human approval to a waiting review job.
func (o *Orchestrator) Approve(ctx context.Context, jobID int64) error {
	return o.gate.Approve(ctx, jobID)
}

// Reject terminally fails a waiting review job with the supplied reason.
func (o *Orchestrator) Reject(ctx context.Context, jobID int64, reason string) error {
	return o.gate.Reject(ctx, jobID, reason)
}

// Start launches the worker pool.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shutdown {
		return errors.New("orchestrator is shut down")
	}
	if o.started {
		return errors.New("orchestrator already started")
	}
	if err := o.pool.Start(ctx); err != nil {
		return err
	}
	o.started = true
	return nil
}

// Shutdown stops the worker loops and closes the store. It is idempotent
// and safe to defer on every exit path.
func (o *Orchestrator) Shutdown() error {
	o.mu.Lock()
	if o.shutdown {
		o.mu.Unlock()
		return nil
	}
	started := o.started
	o.shutdown = true
	o.started = false
	o.mu.Unlock()

	if started {
		o.pool.Stop()
	}
	err := o.store.Close()
	o.logger.Info("orchestrator shut down", logging.String(logging.FieldEventType, "shutdown"))
	return err
}
