package flow

import (
	"context"
	"fmt"
	"time"

	"loom/internal/jobs"
	"loom/internal/queue"
)

// Request carries everything needed to schedule a full pipeline run.
type Request struct {
	Topic               string
	EducationalCategory string
	AgeBracket          string
	CharacterIDs        []string
	Priority            int
	Delay               time.Duration
}

// SchedulePipeline builds the canonical seven-stage dependency tree and
// submits it as one atomic flow. The tree is nested in reverse pipeline
// order: track is the root, publish its child, and so on down to analyze,
// the only leaf, so stages run to completion before their successor starts.
//
// The returned ids cover the whole tree with the root id first. Submission
// failure leaves no partial flow behind.
func SchedulePipeline(ctx context.Context, store *queue.Store, req Request) ([]int64, error) {
	root, err := buildTree(req)
	if err != nil {
		return nil, err
	}
	ids, err := store.EnqueueFlow(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("schedule pipeline: %w", err)
	}
	return ids, nil
}

func buildTree(req Request) (queue.FlowNode, error) {
	order := jobs.PipelineOrder()

	var node queue.FlowNode
	for i, stage := range order {
		payload, err := stagePayload(stage, req)
		if err != nil {
			return queue.FlowNode{}, err
		}
		next := queue.FlowNode{
			Type:     stage,
			Payload:  payload,
			Priority: req.Priority,
		}
		if i == 0 {
			next.Delay = req.Delay
		} else {
			next.Children = []queue.FlowNode{node}
		}
		node = next
	}
	return node, nil
}

func stagePayload(stage jobs.Type, req Request) ([]byte, error) {
	var payload jobs.Payload
	switch stage {
	case jobs.TypeAnalyze:
		payload = jobs.AnalyzePayload{
			Topic:               req.Topic,
			EducationalCategory: req.EducationalCategory,
			AgeBracket:          req.AgeBracket,
		}
	case jobs.TypeGenerateScript:
		payload = jobs.GenerateScriptPayload{
			EducationalCategory: req.EducationalCategory,
			Topic:               req.Topic,
			AgeBracket:          req.AgeBracket,
			CharacterIDs:        req.CharacterIDs,
		}
	case jobs.TypeGenerateMedia:
		payload = jobs.GenerateMediaPayload{CharacterIDs: req.CharacterIDs}
	case jobs.TypeQualityCheck:
		payload = jobs.QualityCheckPayload{}
	case jobs.TypeReview:
		payload = jobs.ReviewPayload{}
	case jobs.TypePublish:
		payload = jobs.PublishPayload{Title: req.Topic}
	case jobs.TypeTrack:
		payload = jobs.TrackPayload{}
	default:
		return nil, fmt.Errorf("stage %q has no pipeline payload", stage)
	}
	return jobs.Encode(payload)
}
