package resilience

import (
	"context"
	"fmt"
	"time"
)

// Stack holds the middleware every outbound request runs through. Do runs
// rate-limit acquire -> retry-loop (send -> classify) -> metrics record; the
// caller creates the RequestContext (correlation ID) and its Send emits the
// request/response log lines through Logger, once per attempt.
type Stack struct {
	Policy  RetryPolicy
	Limiter *RateLimiter
	Logger  *Logger
	Metrics *MetricsCollector
}

// Send is the shape the HTTP layer gives Stack.Do: perform exactly one
// attempt, returning the raw status code (0 if the transport itself failed)
// and any transport-level error.
type Send func(ctx context.Context, attemptN int) (statusCode int, err error)

// Do runs send through the full middleware chain for one logical operation
// and returns the final (statusCode, err) along with the retry count
// actually spent.
func (s *Stack) Do(ctx context.Context, rc RequestContext, send Send) (statusCode int, retries int, err error) {
	delay, waitErr := s.Limiter.Acquire(ctx)
	if waitErr != nil {
		return 0, 0, fmt.Errorf("rate limit wait: %w", waitErr)
	}

	bo := newPolicyBackOff(s.Policy)
	maxAttempts := s.Policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	start := time.Now()
	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		statusCode, err = send(ctx, attempt)
		lastErr, lastStatus = err, statusCode

		class := Classify(statusCode, err)
		success := err == nil && class != ClassRateLimited && !isHTTPFailure(statusCode)

		if success {
			s.Metrics.Record(ctx, rc, true, retries, time.Since(start), delay)
			return statusCode, retries, nil
		}
		if !class.Retryable() || attempt == maxAttempts {
			break
		}

		retries++
		wait := bo.Delay(attempt)
		select {
		case <-ctx.Done():
			s.Metrics.Record(ctx, rc, false, retries, time.Since(start), delay)
			return lastStatus, retries, ctx.Err()
		case <-time.After(wait):
		}
	}

	s.Metrics.Record(ctx, rc, false, retries, time.Since(start), delay)
	if lastErr == nil {
		lastErr = fmt.Errorf("dynamics request failed with status %d", lastStatus)
	}
	return lastStatus, retries, lastErr
}

func isHTTPFailure(statusCode int) bool {
	return statusCode != 0 && (statusCode < 200 || statusCode >= 300)
}
