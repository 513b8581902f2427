package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"loom/internal/jobs"
	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "volcanoes"}, queue.EnqueueOptions{})
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusWaiting {
		t.Fatalf("expected waiting status, got %s", job.Status)
	}
	if job.MaxAttempts != cfg.Retry.MaxAttempts {
		t.Fatalf("expected max attempts %d from config, got %d", cfg.Retry.MaxAttempts, job.MaxAttempts)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Type != jobs.TypeAnalyze {
		t.Fatalf("unexpected fetched job type: %s", fetched.Type)
	}
}

func TestEnqueueRejectsMismatchedPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	payload, err := jobs.Encode(jobs.AnalyzePayload{Topic: "gravity"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := store.Enqueue(context.Background(), jobs.TypePublish, payload, queue.EnqueueOptions{}); !errors.Is(err, jobs.ErrPayloadMismatch) {
		t.Fatalf("expected ErrPayloadMismatch, got %v", err)
	}
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Enqueue(context.Background(), jobs.Type("transmogrify"), []byte(`{"kind":"transmogrify"}`), queue.EnqueueOptions{}); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}

func TestGetByIDMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.GetByID(context.Background(), 9999); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDetectsStaleVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "magnets"}, queue.EnqueueOptions{})

	stale, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	job.Priority = 5
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	stale.Priority = 9
	if err := store.Update(ctx, stale); !errors.Is(err, queue.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}

	// The winning write must survive untouched.
	current, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if current.Priority != 5 {
		t.Fatalf("expected priority 5, got %d", current.Priority)
	}
}

func TestUpdateBumpsVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.MustEnqueue(t, store, jobs.ReportPayload{Period: "weekly"}, queue.EnqueueOptions{})
	before := job.Version

	job.Priority = 2
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if job.Version != before+1 {
		t.Fatalf("expected version %d after update, got %d", before+1, job.Version)
	}
}

func TestNextEligibleSkipsDelayedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "held"}, queue.EnqueueOptions{Delay: time.Hour})

	job, err := store.NextEligible(ctx, jobs.TypeAnalyze)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected no eligible job while delayed, got %d", job.ID)
	}

	ready := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "ready"}, queue.EnqueueOptions{})
	job, err = store.NextEligible(ctx, jobs.TypeAnalyze)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.ID != ready.ID {
		t.Fatalf("expected job %d, got %#v", ready.ID, job)
	}
}

func TestNextEligiblePrefersPriorityThenInsertionOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "first"}, queue.EnqueueOptions{})
	testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "second"}, queue.EnqueueOptions{})
	urgent := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "urgent"}, queue.EnqueueOptions{Priority: 10})

	job, err := store.NextEligible(ctx, jobs.TypeAnalyze)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.ID != urgent.ID {
		t.Fatalf("expected priority job %d first, got %#v", urgent.ID, job)
	}

	testsupport.MustClaim(t, store, job)

	job, err = store.NextEligible(ctx, jobs.TypeAnalyze)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.ID != first.ID {
		t.Fatalf("expected insertion-order job %d next, got %#v", first.ID, job)
	}
}

func TestNextEligibleRestrictsToRequestedTypes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "skip me"}, queue.EnqueueOptions{})
	report := testsupport.MustEnqueue(t, store, jobs.ReportPayload{Period: "daily"}, queue.EnqueueOptions{})

	job, err := store.NextEligible(ctx, jobs.TypeReport)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.ID != report.ID {
		t.Fatalf("expected report job %d, got %#v", report.ID, job)
	}

	job, err = store.NextEligible(ctx)
	if err != nil {
		t.Fatalf("NextEligible with no types failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job for empty type set, got %d", job.ID)
	}
}

func TestNextEligibleWaitsForChildren(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	parentPayload, err := jobs.Encode(jobs.PublishPayload{Title: "Volcanoes 101"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	childPayload, err := jobs.Encode(jobs.QualityCheckPayload{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	ids, err := store.EnqueueFlow(ctx, queue.FlowNode{
		Type:    jobs.TypePublish,
		Payload: parentPayload,
		Children: []queue.FlowNode{
			{Type: jobs.TypeQualityCheck, Payload: childPayload},
		},
	})
	if err != nil {
		t.Fatalf("EnqueueFlow failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 flow ids, got %d", len(ids))
	}

	job, err := store.NextEligible(ctx, jobs.TypePublish)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job != nil {
		t.Fatalf("parent should not be eligible while child is pending, got %d", job.ID)
	}

	child, err := store.GetByID(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	testsupport.MustClaim(t, store, child)
	if err := store.MarkCompleted(ctx, child, []byte(`{"score":92}`)); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	job, err = store.NextEligible(ctx, jobs.TypePublish)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.ID != ids[0] {
		t.Fatalf("expected parent %d eligible after child completion, got %#v", ids[0], job)
	}
}

func TestEnqueueFlowIsAtomic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	parentPayload, err := jobs.Encode(jobs.TrackPayload{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Child payload tagged for the wrong type must sink the whole flow.
	badChild, err := jobs.Encode(jobs.AnalyzePayload{Topic: "oops"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, err = store.EnqueueFlow(ctx, queue.FlowNode{
		Type:    jobs.TypeTrack,
		Payload: parentPayload,
		Children: []queue.FlowNode{
			{Type: jobs.TypePublish, Payload: badChild},
		},
	})
	if !errors.Is(err, jobs.ErrPayloadMismatch) {
		t.Fatalf("expected ErrPayloadMismatch, got %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty queue after failed flow, found %d jobs", len(all))
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	waiting := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "a"}, queue.EnqueueOptions{})
	active := testsupport.MustEnqueue(t, store, jobs.AnalyzePayload{Topic: "b"}, queue.EnqueueOptions{})
	testsupport.MustClaim(t, store, active)

	got, err := store.List(ctx, queue.StatusWaiting)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != waiting.ID {
		t.Fatalf("expected only waiting job %d, got %#v", waiting.ID, got)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
}
