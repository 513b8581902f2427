// Package retry provides the exponential-backoff helper and the
// retryable-error classifier shared by queue-level job retries and direct
// calls to external generation APIs.
//
// Both consumers deliberately share one classifier: a 429 from an upstream
// API should requeue a job with the same judgement an inline call would
// apply before its next attempt.
package retry
