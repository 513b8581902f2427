package queue

import (
	"context"
	"fmt"
	"time"
)

// Stats returns a count of stored jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output. Delayed jobs are
// waiting jobs deferred past the snapshot instant; the five buckets always
// sum to Total. One query, so the summary is a consistent point-in-time
// snapshot even while workers transition jobs.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	var health HealthSummary
	now := s.now().UTC().Format(time.RFC3339Nano)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN status = 'waiting' AND (next_attempt_at IS NULL OR next_attempt_at <= ?) THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = 'waiting' AND next_attempt_at IS NOT NULL AND next_attempt_at > ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
        FROM queue_jobs`,
		now,
		now,
	).Scan(&health.Total, &health.Waiting, &health.Delayed, &health.Active, &health.Completed, &health.Failed)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	return health, nil
}

// History returns at most limit jobs across every lifecycle state, most
// recently created first. Presentation state should come from DerivedStatus.
func (s *Store) History(ctx context.Context, limit int) ([]*Job, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM queue_jobs ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("job history: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// UpdateHeartbeat refreshes the heartbeat timestamp for an in-flight job.
// Deliberately not CAS-guarded: a heartbeat racing a completion must not
// fail the completion, and a heartbeat landing on a finished job is harmless
// because reclaim only considers active jobs.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := s.now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = 'active'`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns active jobs whose heartbeat expired before cutoff to
// waiting, so another worker can pick them up. The attempt counter is left
// alone; a crashed worker is not the job's fault.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := s.now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_jobs
         SET status = 'waiting', last_heartbeat = NULL, updated_at = ?, version = version + 1
         WHERE status = 'active' AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		now.Format(time.RFC3339Nano),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to waiting for reprocessing, resetting
// their attempt budget. Jobs rejected by a human are excluded: that decision
// is terminal and an operator retry must not resurrect it.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)
	base := `UPDATE queue_jobs
        SET status = 'waiting', attempts = 0, next_attempt_at = NULL,
            started_at = NULL, finished_at = NULL, failed_reason = NULL,
            updated_at = ?, version = version + 1
        WHERE status = 'failed' AND (failed_reason IS NULL OR failed_reason NOT LIKE ?)`

	args := []any{now, RejectedReasonPrefix + "%"}
	query := base
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes completed jobs, returning the number deleted.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_jobs WHERE status = 'completed'`)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every job from the queue, returning the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
