package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestMiddleware_SuccessPath(t *testing.T) {
	rec, tracer := newRecordingTracer()
	reader, mp := newTestMeter(t)
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	var buf bytes.Buffer
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("info", &buf))

	got, err := Call(context.Background(), mw, Operation{Name: "weather", Language: "hi"},
		func(context.Context) (string, error) { return "31°C", nil })
	if err != nil || got != "31°C" {
		t.Fatalf("Call() = (%q, %v)", got, err)
	}

	if spans := rec.Ended(); len(spans) != 1 || spans[0].Name() != "advisor.weather" {
		t.Errorf("spans = %v", spans)
	}
	if findMetric(collect(t, reader), "advisor.call.total") == nil {
		t.Error("advisor.call.total not recorded")
	}

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("log lines = %d, want 1", len(lines))
	}
	if lines[0]["level"] != "info" || lines[0]["op.name"] != "weather" || lines[0]["op.lang"] != "hi" {
		t.Errorf("log entry = %v", lines[0])
	}
	if _, ok := lines[0]["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	rec, tracer := newRecordingTracer()
	reader, mp := newTestMeter(t)
	metrics, _ := NewMetrics(mp.Meter("test"))
	var buf bytes.Buffer
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("info", &buf))

	errUpstream := errors.New("upstream unavailable")
	err := mw.Observe(context.Background(), Operation{Name: "mandi"},
		func(context.Context) error { return errUpstream })
	if err != errUpstream {
		t.Errorf("Observe() error = %v, want %v", err, errUpstream)
	}

	if spans := rec.Ended(); len(spans) != 1 || !spanAttrs(spans[0].Attributes())["op.error"].AsBool() {
		t.Error("error not recorded on span")
	}
	if m := findMetric(collect(t, reader), "advisor.call.errors"); m == nil || sumValue(t, m) != 1 {
		t.Error("advisor.call.errors not incremented")
	}
	lines := decodeLines(t, &buf)
	if lines[0]["level"] != "error" || lines[0]["error"] != "upstream unavailable" {
		t.Errorf("log entry = %v", lines[0])
	}
}

func TestMiddleware_PropagatesSpanContext(t *testing.T) {
	_, tracer := newRecordingTracer()
	mw := NewMiddleware(tracer, nil, nil)

	var inner trace.SpanContext
	_ = mw.Observe(context.Background(), Operation{Name: "speech"}, func(ctx context.Context) error {
		inner = trace.SpanContextFromContext(ctx)
		return nil
	})
	if !inner.IsValid() {
		t.Error("wrapped function did not receive the span context")
	}
}

func TestMiddleware_NilRunsDirectly(t *testing.T) {
	var mw *Middleware
	got, err := Call(context.Background(), mw, Operation{Name: "advice"},
		func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("Call() = (%d, %v), want (7, nil)", got, err)
	}
}
