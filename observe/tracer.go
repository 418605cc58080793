package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer opens one span per advisory operation. A Tracer built over a nil
// trace.Tracer records nothing.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) *Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("agriadvisor")
	}
	return &Tracer{tracer: t}
}

// Start opens the span for op. The request id on ctx, if any, becomes the
// request.id attribute.
func (t *Tracer) Start(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, 5)
	attrs = append(attrs,
		attribute.String("op.name", op.Name),
		attribute.Bool("op.cached", op.Cached),
		attribute.Bool("op.error", false),
	)
	if op.Language != "" {
		attrs = append(attrs, attribute.String("op.lang", op.Language))
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("request.id", id))
	}
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// End closes span with an Error status when err is non-nil.
func (t *Tracer) End(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		span.End()
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("op.error", true))
	span.SetStatus(codes.Error, err.Error())
	span.End()
}
