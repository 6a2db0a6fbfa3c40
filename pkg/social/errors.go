package social

import (
	"errors"
	"fmt"
)

// AuthenticationError reports a failed credential handshake. The account
// stays unusable until a later Authenticate succeeds.
type AuthenticationError struct {
	Platform string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Platform, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// NotAuthenticatedError reports an operation attempted before a successful
// Authenticate call.
type NotAuthenticatedError struct {
	Platform string
}

func (e *NotAuthenticatedError) Error() string {
	return fmt.Sprintf("%s: not authenticated", e.Platform)
}

// FetchError reports a remote failure while reading posts. Retryable marks
// transient failures (timeouts, rate limits, 5xx) that a caller may retry.
type FetchError struct {
	Platform  string
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch failed: %v", e.Platform, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PublishError reports a remote failure while posting. RateLimited is a
// subkind of retryable failure; non-retryable failures (malformed content,
// size limits) are terminal for that content.
type PublishError struct {
	Platform    string
	Retryable   bool
	RateLimited bool
	Err         error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: publish failed: %v", e.Platform, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a fetch or publish failure worth
// retrying.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsRateLimited reports whether err is specifically a rate-limit rejection.
func IsRateLimited(err error) bool {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.RateLimited
	}
	return false
}

// IsNotAuthenticated reports whether err is a fail-fast unauthenticated call.
func IsNotAuthenticated(err error) bool {
	var ne *NotAuthenticatedError
	return errors.As(err, &ne)
}
