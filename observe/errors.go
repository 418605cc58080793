package observe

import "errors"

var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be within [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
)

var (
	ErrNilObserver          = errors.New("observe: observer is nil")
	ErrMissingOperationName = errors.New("observe: operation name is required")
)
