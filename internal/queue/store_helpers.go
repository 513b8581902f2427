package queue

import (
	"database/sql"
	"errors"
	"time"

	"loom/internal/jobs"
)

const jobColumns = "id, type, payload, result, status, priority, attempts, max_attempts, backoff_base_seconds, backoff_max_seconds, next_attempt_at, parent_id, created_at, updated_at, started_at, finished_at, failed_reason, last_heartbeat, version"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id            int64
		typeStr       string
		payload       sql.NullString
		result        sql.NullString
		statusStr     string
		priority      int
		attempts      int
		maxAttempts   int
		backoffBase   int64
		backoffMax    int64
		nextAttemptAt sql.NullString
		parentID      sql.NullInt64
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		startedRaw    sql.NullString
		finishedRaw   sql.NullString
		failedReason  sql.NullString
		heartbeatRaw  sql.NullString
		version       int64
	)

	if err := scanner.Scan(
		&id,
		&typeStr,
		&payload,
		&result,
		&statusStr,
		&priority,
		&attempts,
		&maxAttempts,
		&backoffBase,
		&backoffMax,
		&nextAttemptAt,
		&parentID,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
		&failedReason,
		&heartbeatRaw,
		&version,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Type:         jobs.Type(typeStr),
		Status:       Status(statusStr),
		Priority:     priority,
		Attempts:     attempts,
		MaxAttempts:  maxAttempts,
		BackoffBase:  time.Duration(backoffBase) * time.Second,
		BackoffMax:   time.Duration(backoffMax) * time.Second,
		FailedReason: failedReason.String,
		Version:      version,
	}
	if payload.Valid {
		job.Payload = []byte(payload.String)
	}
	if result.Valid {
		job.Result = []byte(result.String)
	}
	if parentID.Valid {
		pid := parentID.Int64
		job.ParentID = &pid
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	job.NextAttemptAt = parseOptionalTime(nextAttemptAt)
	job.StartedAt = parseOptionalTime(startedRaw)
	job.FinishedAt = parseOptionalTime(finishedRaw)
	job.LastHeartbeat = parseOptionalTime(heartbeatRaw)
	return job, nil
}

func parseOptionalTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableBytes(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return string(value)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
