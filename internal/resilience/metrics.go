package resilience

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// counterSet groups the raw otel instruments one MetricsCollector needs:
// counters plus a latency histogram, attributed by operation/entity.
type counterSet struct {
	total           metric.Int64Counter
	successful      metric.Int64Counter
	failed          metric.Int64Counter
	retries         metric.Int64Counter
	duration        metric.Float64Histogram
	rateLimitDelays metric.Float64Histogram
}

// MetricsCollector tracks global, per-operation-type and per-entity
// counters, and derives success_rate / error_rate / average_duration on
// demand. The authoritative running totals are kept in-process (otel
// instruments are async-safe but don't support read-back). Record updates
// both the in-process totals and the otel instruments, so anything wired to
// the MeterProvider (e.g. the stdoutmetric exporter behind --debug-metrics)
// observes the same numbers; the Snapshot methods read the in-process totals.
type MetricsCollector struct {
	mu       sync.Mutex
	global   *accumulator
	byOp     map[string]*accumulator
	byEntity map[string]*accumulator
	counters counterSet
}

type accumulator struct {
	total           int64
	successful      int64
	failed          int64
	retries         int64
	durations       []time.Duration
	rateLimitDelays []time.Duration
}

func newAccumulator() *accumulator { return &accumulator{} }

// NewMetricsCollector builds a collector registered against meter.
func NewMetricsCollector(meter metric.Meter) (*MetricsCollector, error) {
	total, err := meter.Int64Counter("dynamics_requests_total")
	if err != nil {
		return nil, err
	}
	successful, err := meter.Int64Counter("dynamics_requests_successful")
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("dynamics_requests_failed")
	if err != nil {
		return nil, err
	}
	retries, err := meter.Int64Counter("dynamics_requests_retries")
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("dynamics_request_duration_seconds")
	if err != nil {
		return nil, err
	}
	rateLimitDelays, err := meter.Float64Histogram("dynamics_rate_limit_delay_seconds")
	if err != nil {
		return nil, err
	}

	return &MetricsCollector{
		global:   newAccumulator(),
		byOp:     make(map[string]*accumulator),
		byEntity: make(map[string]*accumulator),
		counters: counterSet{total, successful, failed, retries, duration, rateLimitDelays},
	}, nil
}

// Record is called exactly once per completed operation (after all
// retries), plus the retry count accrued along the way.
func (m *MetricsCollector) Record(ctx context.Context, rc RequestContext, success bool, retryCount int, duration, rateLimitDelay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs := metric.WithAttributes(
		attribute.String("operation", rc.OperationType),
		attribute.String("entity", rc.Entity),
	)

	for _, acc := range []*accumulator{m.global, m.accForOp(rc.OperationType), m.accForEntity(rc.Entity)} {
		acc.total++
		if success {
			acc.successful++
		} else {
			acc.failed++
		}
		acc.retries += int64(retryCount)
		acc.durations = append(acc.durations, duration)
		if rateLimitDelay > 0 {
			acc.rateLimitDelays = append(acc.rateLimitDelays, rateLimitDelay)
		}
	}

	m.counters.total.Add(ctx, 1, attrs)
	if success {
		m.counters.successful.Add(ctx, 1, attrs)
	} else {
		m.counters.failed.Add(ctx, 1, attrs)
	}
	if retryCount > 0 {
		m.counters.retries.Add(ctx, int64(retryCount), attrs)
	}
	m.counters.duration.Record(ctx, duration.Seconds(), attrs)
	if rateLimitDelay > 0 {
		m.counters.rateLimitDelays.Record(ctx, rateLimitDelay.Seconds(), attrs)
	}
}

func (m *MetricsCollector) accForOp(op string) *accumulator {
	acc, ok := m.byOp[op]
	if !ok {
		acc = newAccumulator()
		m.byOp[op] = acc
	}
	return acc
}

func (m *MetricsCollector) accForEntity(entity string) *accumulator {
	acc, ok := m.byEntity[entity]
	if !ok {
		acc = newAccumulator()
		m.byEntity[entity] = acc
	}
	return acc
}

// Snapshot is a serializable, point-in-time copy of one accumulator's
// derived statistics.
type Snapshot struct {
	Total             int64
	Successful        int64
	Failed            int64
	TotalRetries      int64
	SuccessRate       float64
	ErrorRate         float64
	AverageDuration   time.Duration
	AverageRateDelay  time.Duration
}

func snapshotOf(acc *accumulator) Snapshot {
	s := Snapshot{
		Total:        acc.total,
		Successful:   acc.successful,
		Failed:       acc.failed,
		TotalRetries: acc.retries,
	}
	if acc.total > 0 {
		s.SuccessRate = float64(acc.successful) / float64(acc.total)
		s.ErrorRate = float64(acc.failed) / float64(acc.total)
	}
	if len(acc.durations) > 0 {
		var sum time.Duration
		for _, d := range acc.durations {
			sum += d
		}
		s.AverageDuration = sum / time.Duration(len(acc.durations))
	}
	if len(acc.rateLimitDelays) > 0 {
		var sum time.Duration
		for _, d := range acc.rateLimitDelays {
			sum += d
		}
		s.AverageRateDelay = sum / time.Duration(len(acc.rateLimitDelays))
	}
	return s
}

// GlobalSnapshot takes a consistent point-in-time copy of the global counters.
func (m *MetricsCollector) GlobalSnapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshotOf(m.global)
}

// OperationSnapshot snapshots one operation type's counters.
func (m *MetricsCollector) OperationSnapshot(op string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byOp[op]
	if !ok {
		return Snapshot{}
	}
	return snapshotOf(acc)
}

// EntitySnapshot snapshots one entity's counters.
func (m *MetricsCollector) EntitySnapshot(entity string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byEntity[entity]
	if !ok {
		return Snapshot{}
	}
	return snapshotOf(acc)
}
