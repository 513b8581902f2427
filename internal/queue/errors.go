package queue

import "errors"

var (
	// ErrNotFound is returned by any operation addressing a job id that
	// does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrUnavailable indicates the backing store cannot be reached.
	ErrUnavailable = errors.New("queue unavailable")

	// ErrStale indicates a compare-and-swap mutation lost a race: the job
	// changed since it was loaded. Callers should reload and re-evaluate.
	ErrStale = errors.New("job version conflict")

	// ErrInvalidTransition indicates a state change the job's current
	// status does not permit, such as deciding a review that already ran.
	ErrInvalidTransition = errors.New("invalid status transition")
)
