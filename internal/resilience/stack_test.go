package resilience

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func newTestStack(t *testing.T, policy RetryPolicy) *Stack {
	t.Helper()
	mc, err := NewMetricsCollector(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return &Stack{
		Policy:  policy,
		Limiter: NewRateLimiter(0, 0),
		Logger:  NewLogger(slog.Default()),
		Metrics: mc,
	}
}

// TestRetryOn503ThenSuccess: policy max_attempts=3, base=1ms, mult=2,
// jitter=off. Mock returns 503, 503, 200. Expected: success, retries == 2.
func TestRetryOn503ThenSuccess(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         1 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            false,
	}
	s := newTestStack(t, policy)

	calls := 0
	statuses := []int{503, 503, 200}
	send := func(ctx context.Context, attempt int) (int, error) {
		status := statuses[calls]
		calls++
		return status, nil
	}

	rc := NewRequestContext("query", "account")
	status, retries, err := s.Do(context.Background(), rc, send)

	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustedSurfacesFinalError(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         1 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            false,
	}
	s := newTestStack(t, policy)

	calls := 0
	send := func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 503, nil
	}

	status, retries, err := s.Do(context.Background(), NewRequestContext("query", "account"), send)

	assert.Error(t, err)
	assert.Equal(t, 503, status)
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, calls)
}

func TestNonRetryableClientErrorStopsImmediately(t *testing.T) {
	s := newTestStack(t, DefaultRetryPolicy())

	calls := 0
	send := func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 404, nil
	}

	_, retries, err := s.Do(context.Background(), NewRequestContext("query", "account"), send)

	assert.Error(t, err)
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, calls)
}
