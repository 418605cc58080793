package health_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/kisanmitra/agriadvisor/cache"
	"github.com/kisanmitra/agriadvisor/health"
)

type cooldown time.Duration

func (c cooldown) CooldownRemaining() time.Duration { return time.Duration(c) }

func ExampleAggregator() {
	agg := health.NewAggregator()
	agg.Register(health.NewStoreChecker(cache.NewMemoryStore(0)))
	agg.Register(health.NewCooldownChecker(cooldown(30 * time.Second)))

	results := agg.CheckAll(context.Background())
	for _, name := range agg.CheckerNames() {
		fmt.Println(name, results[name].Status)
	}
	fmt.Println("overall:", health.Overall(results))
	// Output:
	// cache_store healthy
	// upstream_cooldown degraded
	// overall: degraded
}

func ExampleRegisterHandlers() {
	agg := health.NewAggregator()
	agg.Register(health.NewStoreChecker(cache.NewMemoryStore(0)))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	fmt.Println(rec.Code)
	// Output:
	// 200
}
