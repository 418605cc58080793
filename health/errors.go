package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check did not finish before the deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates no checker is registered under a name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrProbeMismatch indicates a store returned something other than what
	// the probe wrote.
	ErrProbeMismatch = errors.New("health: store probe read back a different value")
)
