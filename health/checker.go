package health

import (
	"context"
	"time"
)

// Status represents the health status of a component.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Serving reports whether a component in this status can still take traffic.
func (s Status) Serving() bool {
	return s != StatusUnhealthy
}

// Result is the outcome of one check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result. err may be nil.
func Degraded(message string, err error) Result {
	return Result{Status: StatusDegraded, Message: message, Error: err, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker reports the health of one component.
//
// Contract:
// - Concurrency: Check may be called concurrently.
// - Context: Check should return promptly once ctx is done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type checkerFunc struct {
	name string
	fn   func(context.Context) Result
}

// CheckerFunc adapts fn to a Checker named name.
func CheckerFunc(name string, fn func(context.Context) Result) Checker {
	return checkerFunc{name: name, fn: fn}
}

func (f checkerFunc) Name() string                     { return f.name }
func (f checkerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
