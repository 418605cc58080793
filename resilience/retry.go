package resilience

import (
	"context"
	"time"
)

// Retry defaults mirror the upstream advisory client: one retry after two
// seconds.
const (
	DefaultMaxAttempts = 2
	DefaultRetryDelay  = 2 * time.Second
)

// RetryConfig configures bounded retry with a constant delay.
type RetryConfig struct {
	// MaxAttempts counts the initial attempt. Default: DefaultMaxAttempts.
	MaxAttempts int

	// Delay is the pause between attempts. Default: DefaultRetryDelay.
	Delay time.Duration

	// RetryIf reports whether err warrants another attempt.
	// Default: every non-nil error.
	RetryIf func(err error) bool

	// OnRetry runs before each pause with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// Retry runs an operation until it succeeds, fails with an error RetryIf
// rejects, or runs out of attempts.
type Retry struct {
	config RetryConfig
}

// NewRetry applies defaults to config.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Delay <= 0 {
		config.Delay = DefaultRetryDelay
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// Execute runs op under r. The last error is returned unchanged; a context
// that ends during a pause returns ctx.Err().
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is Execute for operations that return a value.
func Do[T any](ctx context.Context, r *Retry, op func(context.Context) (T, error)) (T, error) {
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= r.config.MaxAttempts || !r.config.RetryIf(err) {
			return v, err
		}
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err)
		}
		if werr := sleep(ctx, r.config.Delay); werr != nil {
			var zero T
			return zero, werr
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
