package api

import (
	"sync"
	"time"
)

// RateLimiter defines the interface for client-side rate limiting.
type RateLimiter interface {
	// Wait blocks until it's safe to make another API call.
	Wait()
	// CanProceed returns true if a request can be made without waiting.
	CanProceed() bool
}

// SimpleRateLimiter enforces a minimum delay between calls.
type SimpleRateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewSimpleRateLimiter creates a rate limiter with a minimum delay between
// calls.
func NewSimpleRateLimiter(minDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{minDelay: minDelay}
}

// Wait blocks until it's safe to make another API call.
func (rl *SimpleRateLimiter) Wait() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	elapsed := time.Since(rl.lastCall)
	if elapsed < rl.minDelay {
		time.Sleep(rl.minDelay - elapsed)
	}
	rl.lastCall = time.Now()
}

// CanProceed returns true if a request can be made without waiting.
func (rl *SimpleRateLimiter) CanProceed() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return time.Since(rl.lastCall) >= rl.minDelay
}

// NoOpRateLimiter performs no rate limiting. Used for read-only platforms
// with no request budget.
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a rate limiter that performs no limiting.
func NewNoOpRateLimiter() *NoOpRateLimiter {
	return &NoOpRateLimiter{}
}

// Wait does nothing.
func (rl *NoOpRateLimiter) Wait() {}

// CanProceed always returns true.
func (rl *NoOpRateLimiter) CanProceed() bool { return true }
