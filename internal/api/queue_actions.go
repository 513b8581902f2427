package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"loom/internal/config"
	"loom/internal/flow"
	"loom/internal/jobs"
	"loom/internal/queue"
	"loom/internal/review"
)

// AddJobRequest enqueues a single job from the CLI.
type AddJobRequest struct {
	Config      *config.Config
	Type        string
	PayloadJSON string
	Priority    int
	Delay       time.Duration
}

// AddJob validates the type and payload, then enqueues one job.
func AddJob(ctx context.Context, req AddJobRequest) (JobView, error) {
	jobType, ok := jobs.ParseType(req.Type)
	if !ok {
		return JobView{}, fmt.Errorf("unknown job type %q", req.Type)
	}

	data := strings.TrimSpace(req.PayloadJSON)
	if data == "" {
		data = "{}"
	}
	if !json.Valid([]byte(data)) {
		return JobView{}, fmt.Errorf("payload is not valid JSON")
	}
	payload, err := json.Marshal(jobs.Envelope{Kind: jobType, Data: json.RawMessage(data)})
	if err != nil {
		return JobView{}, fmt.Errorf("encode payload: %w", err)
	}

	store, err := openStore(req.Config)
	if err != nil {
		return JobView{}, err
	}
	defer store.Close()

	job, err := store.Enqueue(ctx, jobType, payload, queue.EnqueueOptions{
		Priority: req.Priority,
		Delay:    req.Delay,
	})
	if err != nil {
		return JobView{}, err
	}
	return NewJobView(job), nil
}

// SchedulePipelineRequest schedules a full pipeline run from the CLI.
type SchedulePipelineRequest struct {
	Config   *config.Config
	Topic    string
	Priority int
	Delay    time.Duration
}

// SchedulePipeline submits the seven-stage flow using pipeline defaults
// from config, returning every created job id with the root id first.
func SchedulePipeline(ctx context.Context, req SchedulePipelineRequest) ([]int64, error) {
	if req.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	store, err := openStore(req.Config)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	priority := req.Priority
	if priority == 0 {
		priority = req.Config.Pipeline.Priority
	}
	return flow.SchedulePipeline(ctx, store, flow.Request{
		Topic:               req.Topic,
		EducationalCategory: req.Config.Pipeline.EducationalCategory,
		AgeBracket:          req.Config.Pipeline.AgeBracket,
		CharacterIDs:        req.Config.Pipeline.CharacterIDs,
		Priority:            priority,
		Delay:               req.Delay,
	})
}

// ApproveReview applies a human approval to a waiting review job.
func ApproveReview(ctx context.Context, cfg *config.Config, jobID int64) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return review.NewGate(store, nil).Approve(ctx, jobID)
}

// RejectReview terminally fails a waiting review job.
func RejectReview(ctx context.Context, cfg *config.Config, jobID int64, reason string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return review.NewGate(store, nil).Reject(ctx, jobID, reason)
}

// RetryFailed requeues failed jobs (all of them when no ids are given);
// human-rejected jobs stay failed.
func RetryFailed(ctx context.Context, cfg *config.Config, ids ...int64) (int64, error) {
	store, err := openStore(cfg)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.RetryFailed(ctx, ids...)
}

// ClearQueue removes jobs: completed ones only, or everything.
func ClearQueue(ctx context.Context, cfg *config.Config, all bool) (int64, error) {
	store, err := openStore(cfg)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	if all {
		return store.Clear(ctx)
	}
	return store.ClearCompleted(ctx)
}
