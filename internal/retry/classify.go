package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"loom/internal/services"
)

// HTTPStatusError carries an upstream HTTP status for classification.
// External API clients return it so job-level and call-level retries agree
// on what counts as transient.
type HTTPStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

var transientFragments = []string{
	"429",
	"500",
	"501",
	"502",
	"503",
	"504",
	"econnreset",
	"econnrefused",
	"etimedout",
	"timeout",
	"timed out",
	"fetch failed",
	"network",
	"connection reset",
	"quota",
	"rate limit",
}

// IsRetryable classifies an error as transient (worth another attempt) or
// permanent. Rate limiting, server errors, network transport failures, and
// quota exhaustion are transient; auth failures, validation errors, other
// 4xx responses, and cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if services.IsPermanent(err) {
		return false
	}
	// Explicit transient tags win over the cancellation check below: a stage
	// timeout wraps both ErrTimeout and context.DeadlineExceeded, and the tag
	// is the intent.
	if errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrTimeout) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	message := strings.ToLower(err.Error())
	if strings.Contains(message, "401") || strings.Contains(message, "unauthorized") ||
		strings.Contains(message, "403") || strings.Contains(message, "forbidden") {
		return false
	}
	for _, fragment := range transientFragments {
		if strings.Contains(message, fragment) {
			return true
		}
	}
	return false
}
