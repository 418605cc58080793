package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Typed is a view of a TTLCache whose values all have type T.
type Typed[T any] struct {
	c *TTLCache
}

// NewTyped returns a typed view over c.
func NewTyped[T any](c *TTLCache) Typed[T] {
	return Typed[T]{c: c}
}

// Get returns the cached value for key. A value that does not decode into T
// is treated as a miss.
func (t Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	data, ok := t.c.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Set stores value under key for ttl.
func (t Typed[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) {
	t.c.Set(ctx, key, value, ttl)
}

// Clear removes key.
func (t Typed[T]) Clear(ctx context.Context, key string) {
	t.c.Clear(ctx, key)
}
