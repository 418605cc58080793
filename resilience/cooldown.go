package resilience

import (
	"sync"
	"time"
)

// Cooldown is a process-wide "no new upstream calls before" deadline.
//
// The deadline only moves forward: Trip never shortens an open window, so
// concurrent trips are safe in any order.
type Cooldown struct {
	now func() time.Time

	mu    sync.Mutex
	until time.Time
}

// NewCooldown creates a closed cooldown. A nil clock uses time.Now.
func NewCooldown(now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	return &Cooldown{now: now}
}

// Trip opens (or extends) the window to now+window.
func (c *Cooldown) Trip(window time.Duration) time.Time {
	deadline := c.now().Add(window)

	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline.After(c.until) {
		c.until = deadline
	}
	return c.until
}

// Active reports whether the window is open.
func (c *Cooldown) Active() bool {
	return c.Remaining() > 0
}

// Remaining returns how long the window stays open; zero when closed.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	until := c.until
	c.mu.Unlock()

	if d := until.Sub(c.now()); d > 0 {
		return d
	}
	return 0
}

// Until returns the current deadline. The zero time means never tripped.
func (c *Cooldown) Until() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.until
}

// Check returns ErrCooldownActive while the window is open.
func (c *Cooldown) Check() error {
	if c.Active() {
		return ErrCooldownActive
	}
	return nil
}

// Reset closes the window.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	c.until = time.Time{}
	c.mu.Unlock()
}
