// Package review implements the manual approval checkpoint between quality
// check and publish. Approval completes the review job directly; rejection
// is terminal, non-retryable, and carries the "Rejected: " reason prefix so
// it stays distinguishable from exhausted retries.
package review
