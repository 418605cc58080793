package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records advisory call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordCall(ctx context.Context, op Operation, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the call instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"advisor.call.total",
		metric.WithDescription("Total number of advisory calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"advisor.call.errors",
		metric.WithDescription("Total number of failed advisory calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"advisor.call.duration_ms",
		metric.WithDescription("Advisory call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, op Operation, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("op.name", op.Name)}
	if op.Language != "" {
		attrs = append(attrs, attribute.String("op.lang", op.Language))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, Operation, time.Duration, error) {}

var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = noopMetrics{}
)

// OutcomeCounter counts how coordinated calls were served (cache hit,
// coalesced, throttled, produced, failed).
type OutcomeCounter struct {
	counter metric.Int64Counter
}

// NewOutcomeCounter creates the coordinator.outcomes counter on meter.
func NewOutcomeCounter(meter metric.Meter) (*OutcomeCounter, error) {
	counter, err := meter.Int64Counter(
		"coordinator.outcomes",
		metric.WithDescription("Coordinated calls by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	return &OutcomeCounter{counter: counter}, nil
}

// Record counts one outcome. A nil counter is a no-op.
func (c *OutcomeCounter) Record(ctx context.Context, outcome string) {
	if c == nil {
		return
	}
	c.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
