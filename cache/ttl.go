package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kisanmitra/agriadvisor/observe"
)

// Entry is the persisted representation of a cached value.
type Entry struct {
	Data json.RawMessage `json:"data"`

	// Expiry is the absolute expiry time in epoch milliseconds.
	Expiry int64 `json:"expiry"`
}

// ValidAt reports whether the entry is still fresh at t.
func (e Entry) ValidAt(t time.Time) bool {
	return t.UnixMilli() < e.Expiry
}

// TTLCache stores JSON-serializable values with absolute expiry timestamps.
//
// Contract:
// - Concurrency: safe for concurrent use; concurrent Set calls are last-write-wins.
// - Errors: no method returns or panics on store failures.
type TTLCache struct {
	store     Store
	namespace string
	now       func() time.Time
	logger    observe.Logger
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithNamespace overrides DefaultNamespace. An empty ns is ignored.
func WithNamespace(ns string) Option {
	return func(c *TTLCache) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithClock sets the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger reports degraded store operations to logger.
func WithLogger(logger observe.Logger) Option {
	return func(c *TTLCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a TTLCache over store.
func New(store Store, opts ...Option) (*TTLCache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	c := &TTLCache{
		store:     store,
		namespace: DefaultNamespace,
		now:       time.Now,
		logger:    observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Store returns the underlying store.
func (c *TTLCache) Store() Store {
	return c.store
}

// Now returns the cache's current time.
func (c *TTLCache) Now() time.Time {
	return c.now()
}

// Set stores value under key until now+ttl. A non-positive ttl is a no-op.
func (c *TTLCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := ValidateKey(key); err != nil {
		c.warn(ctx, "cache set skipped", key, err)
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.warn(ctx, "cache value not serializable", key, err)
		return
	}
	raw, err := json.Marshal(Entry{
		Data:   data,
		Expiry: c.now().Add(ttl).UnixMilli(),
	})
	if err != nil {
		c.warn(ctx, "cache entry not serializable", key, err)
		return
	}

	nsKey := c.namespace + key
	if es, ok := c.store.(ExpiringStore); ok {
		err = es.SetWithTTL(ctx, nsKey, string(raw), ttl+ExpiryGrace)
	} else {
		err = c.store.Set(ctx, nsKey, string(raw))
	}
	if err != nil {
		c.warn(ctx, "cache store write failed", key, err)
	}
}

// SetHours is Set with the TTL expressed in fractional hours.
func (c *TTLCache) SetHours(ctx context.Context, key string, value any, ttlHours float64) {
	c.Set(ctx, key, value, HoursToTTL(ttlHours))
}

// Get returns the raw JSON stored under key. Returns (nil, false) on miss,
// expiry, undecodable entries and store errors.
func (c *TTLCache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}
	nsKey := c.namespace + key

	raw, ok, err := c.store.Get(ctx, nsKey)
	if err != nil {
		c.warn(ctx, "cache store read failed", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.discard(ctx, key, nsKey, raw)
		return nil, false
	}

	if !entry.ValidAt(c.now()) {
		// Expired - clean up lazily
		c.discard(ctx, key, nsKey, raw)
		return nil, false
	}

	return entry.Data, true
}

// GetInto decodes the cached value for key into dst.
func (c *TTLCache) GetInto(ctx context.Context, key string, dst any) bool {
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// Clear removes key. Idempotent.
func (c *TTLCache) Clear(ctx context.Context, key string) {
	if ValidateKey(key) != nil {
		return
	}
	c.remove(ctx, key, c.namespace+key)
}

func (c *TTLCache) remove(ctx context.Context, key, nsKey string) {
	if err := c.store.Remove(ctx, nsKey); err != nil {
		c.warn(ctx, "cache store remove failed", key, err)
	}
}

// discard removes nsKey only if it still holds raw, so a Set that raced
// the read survives.
func (c *TTLCache) discard(ctx context.Context, key, nsKey, raw string) {
	if cr, ok := c.store.(CompareRemover); ok {
		if err := cr.RemoveIf(ctx, nsKey, raw); err != nil {
			c.warn(ctx, "cache store remove failed", key, err)
		}
		return
	}
	current, ok, err := c.store.Get(ctx, nsKey)
	if err != nil {
		c.warn(ctx, "cache store read failed", key, err)
		return
	}
	if ok && current == raw {
		c.remove(ctx, key, nsKey)
	}
}

func (c *TTLCache) warn(ctx context.Context, msg, key string, err error) {
	c.logger.Warn(ctx, msg,
		observe.Field{Key: "cache.key", Value: key},
		observe.Field{Key: "error", Value: err.Error()},
	)
}

// HoursToTTL converts fractional hours (0.5 = 30 minutes) to a duration.
func HoursToTTL(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
