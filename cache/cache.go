package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// DefaultNamespace prefixes every key written by a TTLCache so that cache
// entries never collide with unrelated data sharing the same store.
const DefaultNamespace = "cache_"

// ExpiryGrace is how long an ExpiringStore keeps an entry past its payload
// expiry.
const ExpiryGrace = time.Hour

// Sentinel errors for cache operations.
var (
	ErrNilStore   = errors.New("cache: store is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrStoreFull  = errors.New("cache: store capacity exceeded")
	ErrMissingTTL = errors.New("cache: no ttl configured for call site")
)

// Store is the persistent string key-value store backing a TTLCache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get returns ("", false, nil) when the key is absent; absence is not an error.
// - Remove is idempotent.
// - The store may be cleared externally at any time.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// CompareRemover is implemented by stores that can delete a key only while
// it still holds value. RemoveIf is a no-op when the value has changed.
type CompareRemover interface {
	RemoveIf(ctx context.Context, key, value string) error
}

// ExpiringStore is implemented by stores that can drop an entry on their
// own after ttl. The entry payload stays authoritative for freshness.
type ExpiringStore interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
