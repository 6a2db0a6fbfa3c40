package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestCalculateBackoff(t *testing.T) {
	policy := &RetryPolicy{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 10 * time.Second}, // capped at MaxBackoff
	}

	for _, tt := range tests {
		if got := policy.CalculateBackoff(tt.attempt); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable status", &HTTPError{StatusCode: http.StatusServiceUnavailable}, true},
		{"rate limit status", &HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{"terminal status", &HTTPError{StatusCode: http.StatusBadRequest}, false},
		{"oauth retryable", &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadGateway}}, true},
		{"oauth terminal", &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusUnauthorized}}, false},
		{"plain error", errors.New("boom"), false},
		{"url error", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.IsRetryableError(tt.err); got != tt.want {
				t.Errorf("IsRetryableError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	policy := DefaultRetryPolicy()

	if !policy.IsRateLimitError(&HTTPError{StatusCode: http.StatusTooManyRequests}) {
		t.Error("429 should be a rate limit error")
	}
	if policy.IsRateLimitError(&HTTPError{StatusCode: http.StatusInternalServerError}) {
		t.Error("500 is not a rate limit error")
	}
	if !policy.IsRateLimitError(&oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}) {
		t.Error("oauth 429 should be a rate limit error")
	}
}

func TestExecuteWithRetry(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		RetryableStatuses: []int{http.StatusServiceUnavailable},
	}

	t.Run("succeeds after transient failure", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetry(context.Background(), policy, "test", func() error {
			calls++
			if calls < 3 {
				return &HTTPError{StatusCode: http.StatusServiceUnavailable}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
	})

	t.Run("stops on terminal error", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetry(context.Background(), policy, "test", func() error {
			calls++
			return &HTTPError{StatusCode: http.StatusBadRequest}
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("terminal error should not retry, got %d attempts", calls)
		}
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetry(context.Background(), policy, "test", func() error {
			calls++
			return &HTTPError{StatusCode: http.StatusServiceUnavailable}
		})
		if err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if calls != policy.MaxAttempts {
			t.Errorf("expected %d attempts, got %d", policy.MaxAttempts, calls)
		}
	})

	t.Run("canceled context aborts backoff wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := ExecuteWithRetry(ctx, policy, "test", func() error {
			return &HTTPError{StatusCode: http.StatusServiceUnavailable}
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context cancellation, got %v", err)
		}
	})
}
