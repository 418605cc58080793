package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/kisanmitra/agriadvisor/observe/exporters"
)

// Config selects agriadvisord's telemetry.
type Config struct {
	ServiceName string
	Version     string
	OTLP        OTLPConfig
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// OTLPConfig locates the collector shared by the otlp trace and metric
// exporters.
type OTLPConfig struct {
	Endpoint string // host:port; empty defers to OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure bool
}

// TracingConfig configures spans.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|stdout|none
	SamplePct float64 // 0.0-1.0
}

// MetricsConfig configures instruments.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none

	// Registerer receives the prometheus collector when Exporter is
	// "prometheus". Default: prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// LoggingConfig configures the JSON logger.
type LoggingConfig struct {
	Enabled bool
	Level   string    // debug|info|warn|error
	Writer  io.Writer // Default: os.Stderr
}

// Validate checks only the enabled sections.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case exporters.OTLP, exporters.Stdout, exporters.None, "":
		default:
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Tracing.Exporter)
		}
		if c.Tracing.SamplePct < 0 || c.Tracing.SamplePct > 1 {
			return fmt.Errorf("%w: got %g", ErrInvalidSamplePct, c.Tracing.SamplePct)
		}
	}
	if c.Metrics.Enabled {
		switch c.Metrics.Exporter {
		case exporters.OTLP, exporters.Prometheus, exporters.Stdout, exporters.None, "":
		default:
			return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.Metrics.Exporter)
		}
	}
	if c.Logging.Enabled {
		switch c.Logging.Level {
		case "debug", "info", "warn", "error", "":
		default:
			return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
		}
	}
	return nil
}

func (c *Config) exporterOptions() exporters.Options {
	return exporters.Options{
		Endpoint:   c.OTLP.Endpoint,
		Insecure:   c.OTLP.Insecure,
		Registerer: c.Metrics.Registerer,
	}
}

// Observer hands out the telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown flushes every provider and joins their errors.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging is best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger
}

// Field is one structured log field.
type Field struct {
	Key   string
	Value any
}

// Telemetry is the Observer NewObserver builds. Disabled sections are
// backed by no-op implementations.
type Telemetry struct {
	tracer         trace.Tracer
	meter          metric.Meter
	logger         Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

var _ Observer = (*Telemetry)(nil)

// NewObserver validates cfg and builds the providers it enables. The
// providers are also installed as the otel globals.
func NewObserver(ctx context.Context, cfg Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	t := &Telemetry{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NopLogger(),
	}

	if cfg.Tracing.Enabled {
		tp, err := newTracerProvider(ctx, &cfg, res)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		t.tracerProvider = tp
		t.tracer = tp.Tracer(cfg.ServiceName)
	}

	if cfg.Metrics.Enabled {
		mp, err := newMeterProvider(ctx, &cfg, res)
		if err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
		otel.SetMeterProvider(mp)
		t.meterProvider = mp
		t.meter = mp.Meter(cfg.ServiceName)
	}

	if cfg.Logging.Enabled {
		w := cfg.Logging.Writer
		if w == nil {
			w = os.Stderr
		}
		t.logger = NewLoggerWithWriter(cfg.Logging.Level, w).With(
			Field{Key: "service", Value: cfg.ServiceName},
		)
	}

	return t, nil
}

func newTracerProvider(ctx context.Context, cfg *Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := exporters.SpanExporter(ctx, cfg.Tracing.Exporter, cfg.exporterOptions())
	if err != nil {
		return nil, fmt.Errorf("observe: tracing: %w", err)
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.Tracing.SamplePct))),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1:
		return sdktrace.AlwaysSample()
	case pct <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(pct)
	}
}

func newMeterProvider(ctx context.Context, cfg *Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader, err := exporters.MetricReader(ctx, cfg.Metrics.Exporter, cfg.exporterOptions())
	if err != nil {
		return nil, fmt.Errorf("observe: metrics: %w", err)
	}
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

// Tracer returns the service tracer.
func (t *Telemetry) Tracer() trace.Tracer { return t.tracer }

// Meter returns the service meter.
func (t *Telemetry) Meter() metric.Meter { return t.meter }

// Logger returns the service logger.
func (t *Telemetry) Logger() Logger { return t.logger }

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
