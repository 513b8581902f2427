package flow_test

import (
	"context"
	"testing"
	"time"

	"loom/internal/flow"
	"loom/internal/jobs"
	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestSchedulePipelineCreatesSevenStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	ids, err := flow.SchedulePipeline(ctx, store, flow.Request{
		Topic:               "why is the sky blue",
		EducationalCategory: "science",
		AgeBracket:          "6-9",
		CharacterIDs:        []string{"remy"},
	})
	if err != nil {
		t.Fatalf("SchedulePipeline failed: %v", err)
	}
	if len(ids) != jobs.PipelineStageCount() {
		t.Fatalf("expected %d jobs, got %d", jobs.PipelineStageCount(), len(ids))
	}

	// Root first: the track job has no parent, everything else chains up.
	root, err := store.GetByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if root.Type != jobs.TypeTrack {
		t.Fatalf("expected track root, got %s", root.Type)
	}
	if root.ParentID != nil {
		t.Fatal("root must have no parent")
	}

	expected := []jobs.Type{
		jobs.TypeTrack,
		jobs.TypePublish,
		jobs.TypeReview,
		jobs.TypeQualityCheck,
		jobs.TypeGenerateMedia,
		jobs.TypeGenerateScript,
		jobs.TypeAnalyze,
	}
	for i, id := range ids {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID(%d) failed: %v", id, err)
		}
		if job.Type != expected[i] {
			t.Fatalf("job %d: expected type %s, got %s", i, expected[i], job.Type)
		}
		if i > 0 {
			if job.ParentID == nil || *job.ParentID != ids[i-1] {
				t.Fatalf("job %s should chain to %d, got %v", job.Type, ids[i-1], job.ParentID)
			}
		}
	}
}

func TestSchedulePipelineOnlyAnalyzeEligible(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := flow.SchedulePipeline(ctx, store, flow.Request{Topic: "tides"}); err != nil {
		t.Fatalf("SchedulePipeline failed: %v", err)
	}

	job, err := store.NextEligible(ctx, jobs.AllTypes()...)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job == nil || job.Type != jobs.TypeAnalyze {
		t.Fatalf("expected analyze as the only eligible stage, got %#v", job)
	}
}

func TestSchedulePipelineDelayHoldsFirstStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := flow.SchedulePipeline(ctx, store, flow.Request{Topic: "later", Delay: time.Hour}); err != nil {
		t.Fatalf("SchedulePipeline failed: %v", err)
	}

	job, err := store.NextEligible(ctx, jobs.AllTypes()...)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nothing eligible while analyze is held, got %s", job.Type)
	}
}

func TestSchedulePipelinePropagatesPriority(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	ids, err := flow.SchedulePipeline(ctx, store, flow.Request{Topic: "rush", Priority: 7})
	if err != nil {
		t.Fatalf("SchedulePipeline failed: %v", err)
	}
	for _, id := range ids {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Priority != 7 {
			t.Fatalf("job %s: expected priority 7, got %d", job.Type, job.Priority)
		}
	}
}

func TestSchedulePipelineSeedsStagePayloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	ids, err := flow.SchedulePipeline(ctx, store, flow.Request{
		Topic:               "volcano chemistry",
		EducationalCategory: "science",
		AgeBracket:          "6-9",
		CharacterIDs:        []string{"remy", "nova"},
	})
	if err != nil {
		t.Fatalf("SchedulePipeline failed: %v", err)
	}

	byType := make(map[jobs.Type]*queue.Job, len(ids))
	for _, id := range ids {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		byType[job.Type] = job
	}

	env, err := jobs.DecodeEnvelope(byType[jobs.TypeAnalyze].Payload)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if env.Kind != jobs.TypeAnalyze {
		t.Fatalf("expected analyze envelope, got %s", env.Kind)
	}

	env, err = jobs.DecodeEnvelope(byType[jobs.TypePublish].Payload)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if env.Kind != jobs.TypePublish {
		t.Fatalf("expected publish envelope, got %s", env.Kind)
	}
}
