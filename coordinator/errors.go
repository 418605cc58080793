package coordinator

import (
	"errors"
	"fmt"
	"time"

	"github.com/kisanmitra/agriadvisor/resilience"
)

// Sentinel errors for coordinator operations.
var (
	// ErrThrottled is matched by every *ThrottledError.
	ErrThrottled = errors.New("coordinator: rate-limit cooldown active")

	// ErrNilCache is returned by New when no cache is supplied.
	ErrNilCache = errors.New("coordinator: cache is nil")

	// ErrNilProducer is returned when a request has no producer.
	ErrNilProducer = errors.New("coordinator: producer is nil")

	// ErrMissingTTL is returned when a keyed request has no positive TTL.
	ErrMissingTTL = errors.New("coordinator: keyed request requires a ttl")

	// ErrTypeMismatch is returned when a caller joins an in-flight call
	// that produces a different result type.
	ErrTypeMismatch = errors.New("coordinator: coalesced result has unexpected type")
)

// ThrottledError is returned while the cooldown window is open.
type ThrottledError struct {
	Until time.Time
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("coordinator: rate-limit cooldown active until %s", e.Until.UTC().Format(time.RFC3339))
}

// Is reports whether target is ErrThrottled or resilience.ErrCooldownActive.
func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled || target == resilience.ErrCooldownActive
}

// RetryAfter returns how long after now the cooldown closes, rounded up to
// whole seconds.
func (e *ThrottledError) RetryAfter(now time.Time) time.Duration {
	d := e.Until.Sub(now)
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1).Truncate(time.Second)
}
