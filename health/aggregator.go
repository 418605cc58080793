package health

import (
	"context"
	"sync"
	"time"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds a full CheckAll run.
	// Default: 5 seconds
	Timeout time.Duration
}

// Aggregator runs registered checkers in parallel and folds their results.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates an empty aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	timeout := 5 * time.Second
	if len(config) > 0 && config[0].Timeout > 0 {
		timeout = config[0].Timeout
	}
	return &Aggregator{
		timeout:  timeout,
		checkers: make(map[string]Checker),
	}
}

// Register adds checker under checker.Name(), replacing any previous one.
func (a *Aggregator) Register(checker Checker) {
	name := checker.Name()

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs the checker registered under name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return run(ctx, checker), nil
}

// CheckAll runs every checker concurrently.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := make([]Checker, 0, len(a.order))
	for _, name := range a.order {
		checkers = append(checkers, a.checkers[name])
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make(map[string]Result, len(checkers))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			r := run(ctx, c)
			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

// Overall returns the worst status in results; healthy when empty.
func Overall(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

func run(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		done <- checker.Check(ctx)
	}()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	r.Duration = time.Since(start)
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}
