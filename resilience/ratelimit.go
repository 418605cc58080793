package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of calls allowed per second.
	// Default: 1
	Rate float64

	// Burst is the maximum burst size.
	// Default: 5
	Burst int

	// MaxWait is the longest Wait blocks before giving up.
	// Default: 5 seconds
	MaxWait time.Duration
}

// RateLimiter is a token bucket used to pace outbound upstream calls.
type RateLimiter struct {
	config RateLimiterConfig

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 1
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}
	if config.MaxWait <= 0 {
		config.MaxWait = 5 * time.Second
	}

	return &RateLimiter{
		config:      config,
		tokens:      float64(config.Burst),
		lastRefresh: time.Now(),
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available, MaxWait elapses, or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(rl.config.MaxWait)
	for {
		if rl.Allow() {
			return nil
		}

		wait := rl.untilNextToken()
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrRateLimitExceeded
		}
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

func (rl *RateLimiter) untilNextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	missing := 1 - rl.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / rl.config.Rate * float64(time.Second))
}

func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefresh)
	rl.lastRefresh = now

	rl.tokens += elapsed.Seconds() * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}
