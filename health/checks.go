package health

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kisanmitra/agriadvisor/cache"
)

// ProbeKey is the store key written by StoreChecker.
const ProbeKey = "health_probe"

// StoreChecker verifies that the cache store accepts a write and returns it.
// Failures are reported as degraded: the service keeps answering without a
// cache.
type StoreChecker struct {
	store cache.Store
	now   func() time.Time
}

// NewStoreChecker creates a checker for store.
func NewStoreChecker(store cache.Store) *StoreChecker {
	return &StoreChecker{store: store, now: time.Now}
}

// Name returns "cache_store".
func (c *StoreChecker) Name() string {
	return "cache_store"
}

// Check pings the store when it supports it, then writes, reads back and
// removes ProbeKey.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Degraded("no cache store configured", cache.ErrNilStore)
	}

	if p, ok := c.store.(cache.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return Degraded("cache store unreachable", err)
		}
	}

	want := strconv.FormatInt(c.now().UnixNano(), 10)
	if err := c.store.Set(ctx, ProbeKey, want); err != nil {
		if errors.Is(err, cache.ErrStoreFull) {
			return Degraded("cache store full; results are not being cached", err)
		}
		return Degraded("cache store rejected write", err)
	}
	defer func() { _ = c.store.Remove(context.WithoutCancel(ctx), ProbeKey) }()

	got, ok, err := c.store.Get(ctx, ProbeKey)
	switch {
	case err != nil:
		return Degraded("cache store read failed", err)
	case !ok || got != want:
		return Degraded("cache store lost the probe value", ErrProbeMismatch)
	}
	return Healthy("cache store round trip ok")
}

// CooldownReporter exposes the remaining rate-limit cooldown.
type CooldownReporter interface {
	CooldownRemaining() time.Duration
}

// CooldownChecker reports degraded while the upstream rate-limit cooldown is
// active.
type CooldownChecker struct {
	reporter CooldownReporter
}

// NewCooldownChecker creates a checker for r.
func NewCooldownChecker(r CooldownReporter) *CooldownChecker {
	return &CooldownChecker{reporter: r}
}

// Name returns "upstream_cooldown".
func (c *CooldownChecker) Name() string {
	return "upstream_cooldown"
}

// Check reports the cooldown state.
func (c *CooldownChecker) Check(context.Context) Result {
	remaining := c.reporter.CooldownRemaining()
	if remaining <= 0 {
		return Healthy("upstream accepting requests")
	}
	return Degraded(
		fmt.Sprintf("upstream rate limited; new calls blocked for %s", remaining.Round(time.Second)),
		nil,
	).WithDetails(map[string]any{
		"remaining_seconds": remaining.Seconds(),
	})
}

var (
	_ Checker = (*StoreChecker)(nil)
	_ Checker = (*CooldownChecker)(nil)
)
