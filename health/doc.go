// Package health reports whether the service can answer advisory requests.
//
// A Checker reports one component. The Aggregator runs a set of checkers
// with a shared deadline and folds them into an overall Status, and the HTTP
// handlers expose that as liveness, readiness and detailed endpoints:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewStoreChecker(store))
//	agg.Register(health.NewCooldownChecker(coord))
//	health.RegisterHandlers(mux, agg)
//
// A broken cache store or an open rate-limit cooldown degrades the service
// but does not take it out of rotation: advisory calls still run, uncached
// or throttled.
package health
