package observe

import (
	"context"
	"time"
)

// Middleware instruments advisory operations with tracing, metrics and
// logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the operation runs with the span's context.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  *Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer *Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Observe runs fn inside a span and records its duration and outcome.
func (m *Middleware) Observe(ctx context.Context, op Operation, fn func(context.Context) error) error {
	_, err := Call(ctx, m, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Observe for functions that return a value. A nil Middleware runs
// fn directly.
func Call[T any](ctx context.Context, m *Middleware, op Operation, fn func(context.Context) (T, error)) (T, error) {
	if m == nil {
		return fn(ctx)
	}

	ctx, span := m.tracer.Start(ctx, op)
	start := time.Now()

	result, err := fn(ctx)

	duration := time.Since(start)
	m.tracer.End(span, err)
	m.metrics.RecordCall(ctx, op, duration, err)

	fields := append(op.Fields(), Field{Key: "duration_ms", Value: float64(duration.Milliseconds())})
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		m.logger.Error(ctx, "advisory call failed", fields...)
	} else {
		m.logger.Info(ctx, "advisory call completed", fields...)
	}

	return result, err
}
