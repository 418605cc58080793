package coordinator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kisanmitra/agriadvisor/cache"
	"github.com/kisanmitra/agriadvisor/resilience"
)

// Defaults applied by New.
const (
	DefaultCooldownWindow = 60 * time.Second
	DefaultMaxAttempts    = 2
	DefaultRetryDelay     = 2 * time.Second
)

// Outcome describes how a call was served.
type Outcome string

const (
	OutcomeHit       Outcome = "hit"
	OutcomeJoined    Outcome = "joined"
	OutcomeThrottled Outcome = "throttled"
	OutcomeProduced  Outcome = "produced"
	OutcomeFailed    Outcome = "failed"
)

// OutcomeHook observes call outcomes. Hit, joined and throttled are reported
// once per caller; produced and failed once per producer run.
type OutcomeHook func(ctx context.Context, key string, outcome Outcome)

// Producer performs one upstream call.
type Producer[T any] func(ctx context.Context) (T, error)

// Request describes one coordinated call.
type Request[T any] struct {
	// Key identifies the result for caching and coalescing. Empty disables
	// both; cooldown and retry still apply.
	Key string

	// TTL is how long a successful result stays cached. Required when Key is set.
	TTL time.Duration

	// Produce performs the upstream call.
	Produce Producer[T]

	// ShouldCache filters which successful results are cached.
	// Default: every success is cached.
	ShouldCache func(T) bool
}

// Coordinator owns the in-flight registry and cooldown state for one
// upstream. It is safe for concurrent use.
type Coordinator struct {
	cache    *cache.TTLCache
	cooldown *resilience.Cooldown
	retry    *resilience.Retry
	classify Classifier
	window   time.Duration
	now      func() time.Time
	hook     OutcomeHook

	mu       sync.Mutex
	inflight map[string]struct{}
	group    singleflight.Group
}

type options struct {
	now         func() time.Time
	window      time.Duration
	maxAttempts int
	retryDelay  time.Duration
	classify    Classifier
	hook        OutcomeHook
}

// Option configures a Coordinator.
type Option func(*options)

// WithClock sets the time source used for the cooldown window.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCooldownWindow sets how long a rate-limit failure blocks new calls.
func WithCooldownWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.window = d
		}
	}
}

// WithRetry sets the total attempts for rate-limited producers and the
// constant delay between them.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(o *options) {
		if maxAttempts > 0 {
			o.maxAttempts = maxAttempts
		}
		if delay > 0 {
			o.retryDelay = delay
		}
	}
}

// WithClassifier replaces DefaultClassifier.
func WithClassifier(c Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classify = c
		}
	}
}

// WithOutcomeHook registers a hook for call outcomes.
func WithOutcomeHook(h OutcomeHook) Option {
	return func(o *options) {
		o.hook = h
	}
}

// New creates a Coordinator over c.
func New(c *cache.TTLCache, opts ...Option) (*Coordinator, error) {
	if c == nil {
		return nil, ErrNilCache
	}

	o := options{
		now:         time.Now,
		window:      DefaultCooldownWindow,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		classify:    DefaultClassifier,
	}
	for _, opt := range opts {
		opt(&o)
	}

	classify := o.classify
	return &Coordinator{
		cache:    c,
		cooldown: resilience.NewCooldown(o.now),
		retry: resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts: o.maxAttempts,
			Delay:       o.retryDelay,
			RetryIf: func(err error) bool {
				return classify(err) == KindRateLimit
			},
		}),
		classify: classify,
		window:   o.window,
		now:      o.now,
		hook:     o.hook,
		inflight: make(map[string]struct{}),
	}, nil
}

// Cache returns the cache used for results.
func (c *Coordinator) Cache() *cache.TTLCache {
	return c.cache
}

// InFlight reports whether a producer for key is outstanding.
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}

// Now returns the coordinator's current time.
func (c *Coordinator) Now() time.Time {
	return c.now()
}

// CooldownUntil returns the cooldown deadline. The zero time means the
// cooldown has never been tripped.
func (c *Coordinator) CooldownUntil() time.Time {
	return c.cooldown.Until()
}

// CooldownRemaining returns how long new calls stay blocked; zero when open.
func (c *Coordinator) CooldownRemaining() time.Duration {
	return c.cooldown.Remaining()
}

// Execute serves req from the cache, an in-flight call for the same key, or
// a new producer run.
//
// Producer errors are returned unchanged. While the cooldown is active a call
// that would start a producer returns a *ThrottledError instead, and callers
// that joined it share that error. If ctx is
// done before the result arrives Execute returns ctx.Err() and the producer
// keeps running.
func Execute[T any](ctx context.Context, c *Coordinator, req Request[T]) (T, error) {
	var zero T
	if req.Produce == nil {
		return zero, ErrNilProducer
	}

	if req.Key == "" {
		if err := c.admit(ctx, req.Key); err != nil {
			return zero, err
		}
		return run(ctx, c, req)
	}

	if req.TTL <= 0 {
		return zero, ErrMissingTTL
	}
	if err := cache.ValidateKey(req.Key); err != nil {
		return zero, err
	}

	typed := cache.NewTyped[T](c.cache)
	if v, ok := typed.Get(ctx, req.Key); ok {
		c.report(ctx, req.Key, OutcomeHit)
		return v, nil
	}

	c.mu.Lock()
	_, joined := c.inflight[req.Key]
	if !joined {
		c.inflight[req.Key] = struct{}{}
	}
	// The producer's cleanup takes c.mu, so a key seen in c.inflight is
	// still registered in the group and DoChan joins it.
	ch := c.group.DoChan(req.Key, func() (any, error) {
		defer c.settle(req.Key)
		detached := context.WithoutCancel(ctx)
		// A previous flight may have filled the cache and settled after
		// the lookup above missed.
		if v, ok := typed.Get(detached, req.Key); ok {
			c.report(detached, req.Key, OutcomeHit)
			return v, nil
		}
		if err := c.admit(detached, req.Key); err != nil {
			return nil, err
		}
		v, err := run(detached, c, req)
		if err != nil {
			return nil, err
		}
		if req.ShouldCache == nil || req.ShouldCache(v) {
			typed.Set(detached, req.Key, v, req.TTL)
		}
		return v, nil
	})
	c.mu.Unlock()

	if joined {
		c.report(ctx, req.Key, OutcomeJoined)
	}

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, ErrTypeMismatch
		}
		return v, nil
	}
}

// admit fails with a *ThrottledError while the cooldown is active.
func (c *Coordinator) admit(ctx context.Context, key string) error {
	if !c.cooldown.Active() {
		return nil
	}
	c.report(ctx, key, OutcomeThrottled)
	return &ThrottledError{Until: c.cooldown.Until()}
}

func (c *Coordinator) settle(key string) {
	c.mu.Lock()
	delete(c.inflight, key)
	c.group.Forget(key)
	c.mu.Unlock()
}

// run invokes the producer, tripping the cooldown on every rate-limit
// failure. Retries do not consult the cooldown they trip.
func run[T any](ctx context.Context, c *Coordinator, req Request[T]) (T, error) {
	out, err := resilience.Do(ctx, c.retry, func(ctx context.Context) (T, error) {
		v, err := req.Produce(ctx)
		if err != nil && c.classify(err) == KindRateLimit {
			c.cooldown.Trip(c.window)
		}
		return v, err
	})
	if err != nil {
		c.report(ctx, req.Key, OutcomeFailed)
		var zero T
		return zero, err
	}
	c.report(ctx, req.Key, OutcomeProduced)
	return out, nil
}

func (c *Coordinator) report(ctx context.Context, key string, o Outcome) {
	if c.hook != nil {
		c.hook(ctx, key, o)
	}
}
