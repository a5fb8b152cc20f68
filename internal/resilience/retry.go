package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures the retry loop. Delay for attempt n>=1 is
// min(MaxDelay, BaseDelay * BackoffMultiplier^(n-1)); when Jitter is true the
// delay is scaled by a uniform factor in [0.5, 1.5]. On the MaxAttempts-th
// attempt a retryable failure is surfaced as the final error instead of
// being retried again.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryPolicy matches the defaults recorded in the options registry
// (internal/config options repository).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       4,
		BaseDelay:         200 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// policyBackOff adapts RetryPolicy to cenkalti/backoff/v4's BackOff
// interface. Stack.Do's retry loop uses its Delay method directly.
type policyBackOff struct {
	policy  RetryPolicy
	attempt int
	rng     *rand.Rand
}

func newPolicyBackOff(p RetryPolicy) *policyBackOff {
	return &policyBackOff{policy: p, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (b *policyBackOff) Reset() { b.attempt = 0 }

// NextBackOff returns the delay before the *next* attempt, per the formula
// in RetryPolicy's doc comment, advancing an internal counter: the first call
// after Reset corresponds to attempt n=1. Stack.Do does not call it; it
// passes its own attempt number to Delay.
func (b *policyBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.Delay(b.attempt)
}

// Delay computes the delay before attempt n (n >= 1) without mutating
// internal counters — exposed standalone so tests can assert monotonicity
// independent of the stateful NextBackOff path.
func (b *policyBackOff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	raw := float64(b.policy.BaseDelay) * math.Pow(b.policy.BackoffMultiplier, float64(n-1))
	d := time.Duration(raw)
	if d > b.policy.MaxDelay {
		d = b.policy.MaxDelay
	}
	if b.policy.Jitter {
		factor := 0.5 + b.rng.Float64()
		d = time.Duration(float64(d) * factor)
	}
	return d
}

var _ backoff.BackOff = (*policyBackOff)(nil)

// RetryDelay exposes the deterministic (jitter-off) delay for attempt n,
// used directly by tests asserting the backoff curve is monotonic.
func RetryDelay(p RetryPolicy, n int) time.Duration {
	p.Jitter = false
	return newPolicyBackOff(p).Delay(n)
}

// Attempt describes one try (its 1-based number and the delay before it) in
// the shape a RequestFunc receives. Stack.Do does not use Attempt or
// RequestFunc: its Send receives only the attempt number.
type Attempt struct {
	N     int // 1-based
	Delay time.Duration
}

// RequestFunc performs one attempt and returns the classified outcome.
type RequestFunc func(ctx context.Context, attempt Attempt) (statusCode int, err error)
