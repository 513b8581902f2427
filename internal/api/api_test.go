package api_test

import (
	"context"
	"testing"
	"time"

	"loom/internal/api"
	"loom/internal/jobs"
	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestAddJobRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ctx := context.Background()
	view, err := api.AddJob(ctx, api.AddJobRequest{
		Config:      cfg,
		Type:        "analyze",
		PayloadJSON: `{"topic":"rain"}`,
		Priority:    2,
	})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if view.Type != "analyze" || view.Status != string(queue.StatusWaiting) || view.Priority != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}

	store := testsupport.MustOpenStore(t, cfg)
	job, err := store.GetByID(ctx, view.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	env, err := jobs.DecodeEnvelope(job.Payload)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if env.Kind != jobs.TypeAnalyze {
		t.Fatalf("expected analyze envelope, got %s", env.Kind)
	}
}

func TestAddJobValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	if _, err := api.AddJob(ctx, api.AddJobRequest{Config: cfg, Type: "transcode"}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if _, err := api.AddJob(ctx, api.AddJobRequest{Config: cfg, Type: "analyze", PayloadJSON: "{broken"}); err == nil {
		t.Fatal("expected error for invalid payload JSON")
	}
	if _, err := api.AddJob(ctx, api.AddJobRequest{Type: "analyze"}); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestAddJobDelayReportsDelayed(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	view, err := api.AddJob(context.Background(), api.AddJobRequest{
		Config: cfg,
		Type:   "report",
		Delay:  time.Hour,
	})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if view.Status != string(queue.StatusDelayed) {
		t.Fatalf("expected delayed presentation status, got %s", view.Status)
	}
}

func TestSchedulePipelineUsesConfigDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.Priority = 4

	ctx := context.Background()
	ids, err := api.SchedulePipeline(ctx, api.SchedulePipelineRequest{Config: cfg, Topic: "maps"})
	if err != nil {
		t.Fatalf("SchedulePipeline failed: %v", err)
	}
	if len(ids) != jobs.PipelineStageCount() {
		t.Fatalf("expected %d jobs, got %d", jobs.PipelineStageCount(), len(ids))
	}

	store := testsupport.MustOpenStore(t, cfg)
	root, err := store.GetByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if root.Priority != 4 {
		t.Fatalf("expected config default priority 4, got %d", root.Priority)
	}
}

func TestReviewFlowThroughAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ctx := context.Background()
	store := testsupport.MustOpenStore(t, cfg)
	approve := testsupport.MustEnqueue(t, store, jobs.ReviewPayload{VideoID: "a"}, queue.EnqueueOptions{})
	reject := testsupport.MustEnqueue(t, store, jobs.ReviewPayload{VideoID: "b"}, queue.EnqueueOptions{})

	views, err := api.ReviewQueue(ctx, cfg)
	if err != nil {
		t.Fatalf("ReviewQueue failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 pending reviews, got %d", len(views))
	}

	if err := api.ApproveReview(ctx, cfg, approve.ID); err != nil {
		t.Fatalf("ApproveReview failed: %v", err)
	}
	if err := api.RejectReview(ctx, cfg, reject.ID, "not funny"); err != nil {
		t.Fatalf("RejectReview failed: %v", err)
	}

	views, err = api.ReviewQueue(ctx, cfg)
	if err != nil {
		t.Fatalf("ReviewQueue failed: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected empty review queue, got %d", len(views))
	}

	// The rejected job stays failed even through an operator retry.
	updated, err := api.RetryFailed(ctx, cfg)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected no retried jobs, got %d", updated)
	}
}

func TestQueueHistoryDerivesStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ctx := context.Background()
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "x"}, queue.EnqueueOptions{})
	testsupport.MustClaim(t, store, job)
	if err := store.MarkCompleted(ctx, job, nil); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	views, err := api.QueueHistory(ctx, cfg, 10)
	if err != nil {
		t.Fatalf("QueueHistory failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(views))
	}
	if views[0].Status != string(queue.StatusCompleted) {
		t.Fatalf("expected derived completed status, got %s", views[0].Status)
	}
	if views[0].FinishedAt == nil {
		t.Fatal("expected finish timestamp in view")
	}
}

func TestQueueHealthAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ctx := context.Background()
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "one"}, queue.EnqueueOptions{})
	done := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "two"}, queue.EnqueueOptions{})
	testsupport.MustClaim(t, store, done)
	if err := store.MarkCompleted(ctx, done, nil); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	health, err := api.QueueHealth(ctx, cfg)
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if health.Total != 2 || health.Waiting != 1 || health.Completed != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}

	removed, err := api.ClearQueue(ctx, cfg, false)
	if err != nil {
		t.Fatalf("ClearQueue failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 completed job removed, got %d", removed)
	}

	removed, err = api.ClearQueue(ctx, cfg, true)
	if err != nil {
		t.Fatalf("ClearQueue failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 job removed by full clear, got %d", removed)
	}
}
