package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loom/internal/jobs"
)

// EnqueueOptions customizes a single enqueue call. Zero values fall back to
// the store's default retry envelope and immediate eligibility.
type EnqueueOptions struct {
	Delay       time.Duration
	Priority    int
	MaxAttempts int
	ParentID    *int64
}

// Enqueue inserts a new waiting job. The payload must be a valid envelope
// whose tag matches the job type; that invariant is enforced here, at the
// boundary, so processors never re-check it.
func (s *Store) Enqueue(ctx context.Context, jobType jobs.Type, payload []byte, opts EnqueueOptions) (*Job, error) {
	ctx = ensureContext(ctx)
	if !jobType.Valid() {
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}
	if err := jobs.ValidateEnvelope(jobType, payload); err != nil {
		return nil, err
	}

	id, err := s.insertJob(ctx, s.db, jobType, payload, opts)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertJob(ctx context.Context, db execer, jobType jobs.Type, payload []byte, opts EnqueueOptions) (int64, error) {
	now := s.now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.envelope.MaxAttempts
	}
	var nextAttempt any
	if opts.Delay > 0 {
		nextAttempt = now.Add(opts.Delay).Format(time.RFC3339Nano)
	}

	res, err := db.ExecContext(
		ctx,
		`INSERT INTO queue_jobs (
            type, payload, status, priority, attempts, max_attempts,
            backoff_base_seconds, backoff_max_seconds, next_attempt_at,
            parent_id, created_at, updated_at, version
        ) VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, 1)`,
		string(jobType),
		string(payload),
		StatusWaiting,
		opts.Priority,
		maxAttempts,
		seconds(s.envelope.BackoffBase),
		seconds(s.envelope.BackoffMax),
		nextAttempt,
		nullableInt64(opts.ParentID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert job: %w", ErrUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// EnqueueFlow inserts a dependency tree of jobs in one transaction. Either
// every node in the tree exists afterwards or none do. The returned ids are
// in parent-before-children order with the root id first.
func (s *Store) EnqueueFlow(ctx context.Context, root FlowNode) ([]int64, error) {
	ctx = ensureContext(ctx)
	if err := validateFlowNode(root); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin flow tx: %w", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	ids, err := s.insertFlowNode(ctx, tx, root, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit flow: %w", ErrUnavailable, err)
	}
	return ids, nil
}

func validateFlowNode(node FlowNode) error {
	if !node.Type.Valid() {
		return fmt.Errorf("unknown job type %q", node.Type)
	}
	if err := jobs.ValidateEnvelope(node.Type, node.Payload); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := validateFlowNode(child); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertFlowNode(ctx context.Context, tx *sql.Tx, node FlowNode, parentID *int64) ([]int64, error) {
	id, err := s.insertJob(ctx, tx, node.Type, node.Payload, EnqueueOptions{
		Delay:    node.Delay,
		Priority: node.Priority,
		ParentID: parentID,
	})
	if err != nil {
		return nil, err
	}
	ids := []int64{id}
	for _, child := range node.Children {
		childIDs, err := s.insertFlowNode(ctx, tx, child, &id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, childIDs...)
	}
	return ids, nil
}

// GetByID fetches a queue job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM queue_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job using its loaded version as the
// compare-and-swap guard. On success the job's Version reflects the store.
func (s *Store) Update(ctx context.Context, job *Job) error {
	ctx = ensureContext(ctx)
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = s.now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_jobs
         SET payload = ?, result = ?, status = ?, priority = ?, attempts = ?,
             max_attempts = ?, next_attempt_at = ?, updated_at = ?,
             started_at = ?, finished_at = ?, failed_reason = ?,
             last_heartbeat = ?, version = version + 1
         WHERE id = ? AND version = ?`,
		nullableBytes(job.Payload),
		nullableBytes(job.Result),
		job.Status,
		job.Priority,
		job.Attempts,
		job.MaxAttempts,
		nullableTime(job.NextAttemptAt),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		nullableString(job.FailedReason),
		nullableTime(job.LastHeartbeat),
		job.ID,
		job.Version,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetByID(ctx, job.ID); errors.Is(getErr, ErrNotFound) {
			return fmt.Errorf("%w: job %d", ErrNotFound, job.ID)
		}
		return fmt.Errorf("%w: job %d", ErrStale, job.ID)
	}
	job.Version++
	return nil
}

// NextEligible returns the next waiting job restricted to the given types
// that is due and whose children have all reached a terminal state. Within
// the eligible set, higher priority wins, then insertion order. A nil result
// with nil error means nothing is currently eligible.
func (s *Store) NextEligible(ctx context.Context, types ...jobs.Type) (*Job, error) {
	ctx = ensureContext(ctx)
	if len(types) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(types)+1)
	args = append(args, s.now().UTC().Format(time.RFC3339Nano))
	for _, t := range types {
		args = append(args, string(t))
	}

	query := `SELECT ` + jobColumns + ` FROM queue_jobs j
        WHERE j.status = 'waiting'
          AND (j.next_attempt_at IS NULL OR j.next_attempt_at <= ?)
          AND j.type IN (` + makePlaceholders(len(types)) + `)
          AND NOT EXISTS (
              SELECT 1 FROM queue_jobs c
              WHERE c.parent_id = j.id
                AND c.status NOT IN ('completed', 'failed')
          )
        ORDER BY j.priority DESC, j.created_at, j.id
        LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next eligible job: %w", err)
	}
	return job, nil
}

// HasNonTerminalChildren reports whether any child of the given job has not
// yet reached completed or failed. Mirrors the eligibility predicate in
// NextEligible.
func (s *Store) HasNonTerminalChildren(ctx context.Context, jobID int64) (bool, error) {
	ctx = ensureContext(ctx)
	var exists int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (
            SELECT 1 FROM queue_jobs
            WHERE parent_id = ? AND status NOT IN ('completed', 'failed')
        )`,
		jobID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check children of job %d: %w", jobID, err)
	}
	return exists == 1, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), in insertion order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM queue_jobs`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
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

// PendingReview returns waiting review jobs in insertion order.
func (s *Store) PendingReview(ctx context.Context) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE type = ? AND status = ? ORDER BY created_at, id`,
		string(jobs.TypeReview),
		StatusWaiting,
	)
	if err != nil {
		return nil, fmt.Errorf("pending review: %w", err)
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
