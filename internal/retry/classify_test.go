package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"loom/internal/retry"
	"loom/internal/services"
)

func TestIsRetryableMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", errors.New("429 too many requests"), true},
		{"server error", errors.New("upstream returned 500"), true},
		{"bad gateway", errors.New("502 bad gateway"), true},
		{"service unavailable", errors.New("503 service unavailable"), true},
		{"gateway timeout", errors.New("504 gateway timeout"), true},
		{"conn reset", errors.New("read tcp: ECONNRESET"), true},
		{"conn refused", errors.New("dial tcp: ECONNREFUSED"), true},
		{"etimedout", errors.New("connect ETIMEDOUT"), true},
		{"fetch failed", errors.New("fetch failed"), true},
		{"quota", errors.New("quota exceeded for project"), true},
		{"rate limit", errors.New("rate limit reached"), true},
		{"unauthorized", errors.New("401 unauthorized"), false},
		{"forbidden", errors.New("403 forbidden"), false},
		{"not found", errors.New("document missing"), false},
		{"validation", errors.New("title must not be empty"), false},
	}
	for _, tc := range cases {
		if got := retry.IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable(%v) = %v, want %v", tc.name, tc.err, got, tc.want)
		}
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{429, true},
		{500, true},
		{501, true},
		{502, true},
		{503, true},
		{504, true},
		{400, false},
		{401, false},
		{408, false},
		{403, false},
		{404, false},
		{422, false},
	}
	for _, tc := range cases {
		err := &retry.HTTPStatusError{StatusCode: tc.status}
		if got := retry.IsRetryable(err); got != tc.want {
			t.Errorf("status %d: IsRetryable = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestIsRetryableRespectsSentinels(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "publish", "upload", "flaky upstream", errors.New("hiccup"))
	if !retry.IsRetryable(transient) {
		t.Fatal("ErrTransient must be retryable")
	}
	timeout := services.Wrap(services.ErrTimeout, "publish", "upload", "deadline hit", context.DeadlineExceeded)
	if !retry.IsRetryable(timeout) {
		t.Fatal("ErrTimeout must be retryable")
	}
	validation := fmt.Errorf("%w: payload rejected", services.ErrValidation)
	if retry.IsRetryable(validation) {
		t.Fatal("validation errors are permanent")
	}
	config := fmt.Errorf("%w: missing api key", services.ErrConfiguration)
	if retry.IsRetryable(config) {
		t.Fatal("configuration errors are permanent")
	}
}

func TestIsRetryableCancellation(t *testing.T) {
	if retry.IsRetryable(context.Canceled) {
		t.Fatal("cancellation is not retryable")
	}
	if retry.IsRetryable(context.DeadlineExceeded) {
		t.Fatal("bare deadline exceeded is not retryable")
	}
}

func TestHTTPStatusErrorMessage(t *testing.T) {
	err := &retry.HTTPStatusError{StatusCode: 503}
	if err.Error() != "http status 503" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	err.Body = "overloaded"
	if err.Error() != "http status 503: overloaded" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
