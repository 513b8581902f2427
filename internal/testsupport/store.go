package testsupport

import (
	"context"
	"testing"

	"loom/internal/config"
	"loom/internal/jobs"
	"loom/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue inserts a job with an encoded payload for tests.
func MustEnqueue(t testing.TB, store *queue.Store, payload jobs.Payload, opts queue.EnqueueOptions) *queue.Job {
	t.Helper()

	encoded, err := jobs.Encode(payload)
	if err != nil {
		t.Fatalf("jobs.Encode: %v", err)
	}
	job, err := store.Enqueue(context.Background(), payload.Kind(), encoded, opts)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}

// MustClaim transitions a waiting job to active for tests.
func MustClaim(t testing.TB, store *queue.Store, job *queue.Job) {
	t.Helper()

	if err := store.Claim(context.Background(), job); err != nil {
		t.Fatalf("store.Claim: %v", err)
	}
}
