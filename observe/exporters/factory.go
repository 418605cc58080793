// Package exporters builds the OpenTelemetry span exporters and metric
// readers selected by agriadvisord's telemetry configuration.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names.
const (
	None       = "none"
	Stdout     = "stdout"
	OTLP       = "otlp"
	Prometheus = "prometheus"
)

var (
	ErrUnknownExporter = errors.New("exporters: unknown exporter")
	ErrMissingEndpoint = errors.New("exporters: otlp endpoint not configured")

	// ErrUnsupportedSignal is returned when an exporter exists for one
	// signal only, such as prometheus for traces.
	ErrUnsupportedSignal = errors.New("exporters: exporter does not support this signal")
)

// Options tune exporter construction. The zero value is usable.
type Options struct {
	// Endpoint is the OTLP gRPC collector address (host:port). When empty
	// the SDK falls back to OTEL_EXPORTER_OTLP_ENDPOINT and the per-signal
	// variable.
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// Writer receives stdout exporter output. Default: os.Stdout.
	Writer io.Writer

	// Registerer receives the prometheus collector.
	// Default: prometheus.DefaultRegisterer.
	Registerer promclient.Registerer
}

func (o Options) writer() io.Writer {
	if o.Writer == nil {
		return os.Stdout
	}
	return o.Writer
}

// endpointConfigured reports whether an OTLP endpoint is set either
// explicitly or through the signal's environment variables.
func (o Options) endpointConfigured(signalEnv string) bool {
	return o.Endpoint != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv(signalEnv) != ""
}

// SpanExporter returns the span exporter called name. "none" and "" return
// a nil exporter: spans are sampled but never leave the process.
func SpanExporter(ctx context.Context, name string, opts Options) (sdktrace.SpanExporter, error) {
	switch name {
	case None, "":
		return nil, nil
	case Stdout:
		return stdouttrace.New(stdouttrace.WithWriter(opts.writer()))
	case OTLP:
		if !opts.endpointConfigured("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") {
			return nil, fmt.Errorf("%w: set telemetry.otlp_endpoint or OTEL_EXPORTER_OTLP_ENDPOINT", ErrMissingEndpoint)
		}
		var grpcOpts []otlptracegrpc.Option
		if opts.Endpoint != "" {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	case Prometheus:
		return nil, fmt.Errorf("%w: %q for traces", ErrUnsupportedSignal, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// MetricReader returns the metric reader called name. "none" and "" return
// a nil reader: instruments record into the void.
func MetricReader(ctx context.Context, name string, opts Options) (sdkmetric.Reader, error) {
	switch name {
	case None, "":
		return nil, nil
	case Stdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.writer()))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case OTLP:
		if !opts.endpointConfigured("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") {
			return nil, fmt.Errorf("%w: set telemetry.otlp_endpoint or OTEL_EXPORTER_OTLP_ENDPOINT", ErrMissingEndpoint)
		}
		var grpcOpts []otlpmetricgrpc.Option
		if opts.Endpoint != "" {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case Prometheus:
		reg := opts.Registerer
		if reg == nil {
			reg = promclient.DefaultRegisterer
		}
		return PrometheusReader(reg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// PrometheusReader returns a pull reader whose collector is registered with
// reg. Serve reg with promhttp to expose the instruments.
func PrometheusReader(reg promclient.Registerer) (sdkmetric.Reader, error) {
	exp, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	return exp, nil
}
