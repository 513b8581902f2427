package api

import (
	"context"
	"fmt"

	"loom/internal/config"
	"loom/internal/queue"
)

// QueueHealth opens the store and returns a point-in-time health snapshot.
func QueueHealth(ctx context.Context, cfg *config.Config) (queue.HealthSummary, error) {
	store, err := openStore(cfg)
	if err != nil {
		return queue.HealthSummary{}, err
	}
	defer store.Close()
	return store.Health(ctx)
}

// QueueHistory returns at most limit jobs, newest first, with presentation
// state derived from timestamps.
func QueueHistory(ctx context.Context, cfg *config.Config, limit int) ([]JobView, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	history, err := store.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(history))
	for _, job := range history {
		views = append(views, NewHistoryView(job))
	}
	return views, nil
}

// ReviewQueue lists review jobs awaiting a decision.
func ReviewQueue(ctx context.Context, cfg *config.Config) ([]JobView, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	pending, err := store.PendingReview(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(pending))
	for _, job := range pending {
		views = append(views, NewJobView(job))
	}
	return views, nil
}

func openStore(cfg *config.Config) (*queue.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	return store, nil
}
