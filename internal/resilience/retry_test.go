package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelayMonotonic(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         10 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            false,
	}

	d1 := RetryDelay(p, 1)
	d2 := RetryDelay(p, 2)
	assert.Equal(t, 10*time.Millisecond, d1)
	assert.Equal(t, 20*time.Millisecond, d2)
	assert.LessOrEqual(t, d1, d2)
}

func TestRetryDelayCapsAtMaxDelay(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:       10,
		BaseDelay:         10 * time.Millisecond,
		MaxDelay:          35 * time.Millisecond,
		BackoffMultiplier: 2,
		Jitter:            false,
	}

	for n := 1; n <= 8; n++ {
		d := RetryDelay(p, n)
		assert.LessOrEqual(t, d, p.MaxDelay)
	}
	// attempt 5 would be 160ms uncapped; capped value must equal MaxDelay exactly.
	assert.Equal(t, p.MaxDelay, RetryDelay(p, 5))
}

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorClass
	}{
		{408, ClassTimeout},
		{429, ClassRateLimited},
		{401, ClassAuthError},
		{403, ClassAuthError},
		{500, ClassServerError},
		{503, ClassServerError},
		{404, ClassClientError},
		{200, ClassUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.status, nil), "status %d", c.status)
	}
}

func TestErrorClassRetryable(t *testing.T) {
	assert.True(t, ClassNetwork.Retryable())
	assert.True(t, ClassTimeout.Retryable())
	assert.True(t, ClassRateLimited.Retryable())
	assert.True(t, ClassServerError.Retryable())
	assert.False(t, ClassClientError.Retryable())
	assert.False(t, ClassAuthError.Retryable())
	assert.False(t, ClassUnknown.Retryable())
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(60, 2)

	assert.True(t, rl.TryAcquire())
	assert.True(t, rl.TryAcquire())
	assert.False(t, rl.TryAcquire())
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.TryAcquire())
	}
}
