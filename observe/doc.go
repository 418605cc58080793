// Package observe provides the observability primitives used across the
// service: OpenTelemetry tracing and metrics, a JSON structured logger, and
// a middleware that instruments advisory operations.
//
// It performs no I/O beyond exporter setup and log writes. The server and
// the advisor wire an Observer in at start-up.
package observe
