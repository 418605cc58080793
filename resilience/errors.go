package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrCooldownActive is returned by Cooldown.Check while the window is open.
	ErrCooldownActive = errors.New("resilience: cooldown active")
)
