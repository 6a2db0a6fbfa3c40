// Package api provides retry and rate-limit policies shared by the bundled
// platform adapters.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// RetryPolicy defines the configuration for retry behavior.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	RetryableStatuses []int
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatuses: []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// ConservativeRetryPolicy returns a policy with minimal retries, for
// platforms with strict request budgets.
func ConservativeRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       2,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatuses: []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable},
	}
}

// CalculateBackoff calculates the backoff duration for a given attempt.
func (rp *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := float64(rp.InitialBackoff) * math.Pow(rp.BackoffMultiplier, float64(attempt-1))
	if backoff > float64(rp.MaxBackoff) {
		backoff = float64(rp.MaxBackoff)
	}

	return time.Duration(backoff)
}

// IsRetryableError checks if an error should trigger a retry.
func (rp *RetryPolicy) IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if httpErr, ok := err.(*HTTPError); ok {
		return rp.isRetryableStatusCode(httpErr.StatusCode)
	}

	if oauthErr, ok := err.(*oauth2.RetrieveError); ok {
		return rp.isRetryableStatusCode(oauthErr.Response.StatusCode)
	}

	return false
}

// IsRateLimitError checks if an error is specifically due to rate limiting.
func (rp *RetryPolicy) IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr.StatusCode == http.StatusTooManyRequests
	}

	if oauthErr, ok := err.(*oauth2.RetrieveError); ok {
		return oauthErr.Response.StatusCode == http.StatusTooManyRequests
	}

	return false
}

func (rp *RetryPolicy) isRetryableStatusCode(statusCode int) bool {
	for _, code := range rp.RetryableStatuses {
		if statusCode == code {
			return true
		}
	}
	return false
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ExecuteWithRetry executes an operation with retry logic, sleeping the
// policy's backoff between attempts. The context aborts the wait between
// attempts, not an in-flight attempt.
func ExecuteWithRetry(ctx context.Context, policy *RetryPolicy, operationName string, operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := policy.CalculateBackoff(attempt - 1)
			if policy.IsRateLimitError(lastErr) {
				// Rate limits get a longer cool-off than generic failures.
				backoff *= 2
			}
			slog.Warn("Retrying operation",
				"operation", operationName,
				"attempt", attempt,
				"maxAttempts", policy.MaxAttempts,
				"backoff", backoff,
				"lastError", lastErr)
			select {
			case <-ctx.Done():
				return fmt.Errorf("operation %s aborted: %w", operationName, ctx.Err())
			case <-time.After(backoff):
			}
		}

		err := operation()
		if err == nil {
			if attempt > 1 {
				slog.Info("Operation succeeded after retry", "operation", operationName, "attempt", attempt)
			}
			return nil
		}
		lastErr = err

		if !policy.IsRetryableError(err) {
			slog.Debug("Error is not retryable, stopping", "operation", operationName, "attempt", attempt, "error", err)
			break
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, policy.MaxAttempts, lastErr)
}
