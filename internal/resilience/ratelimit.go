package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket sized by BurstCapacity, refilled at
// RequestsPerMinute/60 tokens per second. Implemented on top of
// golang.org/x/time/rate, the same token-bucket primitive other repos in
// this corpus use for outbound request shaping (juju/r3e both vendor
// golang.org/x/time for this exact concern).
type RateLimiter struct {
	limiter *rate.Limiter
	enabled bool
}

// NewRateLimiter builds a limiter; requestsPerMinute <= 0 disables limiting
// entirely, making TryAcquire/Acquire no-ops.
func NewRateLimiter(requestsPerMinute float64, burstCapacity int) *RateLimiter {
	if requestsPerMinute <= 0 || burstCapacity <= 0 {
		return &RateLimiter{enabled: false}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), burstCapacity),
		enabled: true,
	}
}

// TryAcquire is non-blocking: it returns true iff a token was available now.
func (l *RateLimiter) TryAcquire() bool {
	if !l.enabled {
		return true
	}
	return l.limiter.Allow()
}

// Acquire waits for the next token, returning the wait duration so the
// caller can record it in per-operation metrics (rate_limit_delays).
func (l *RateLimiter) Acquire(ctx context.Context) (time.Duration, error) {
	if !l.enabled {
		return 0, nil
	}
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}
