// Package resilience provides the failure-handling primitives behind the
// advisory request path.
//
//   - Retry: bounded retries with a constant pause, gated by a RetryIf
//     predicate.
//
//   - Cooldown: a monotonic "no new upstream calls before" deadline that is
//     tripped when the upstream collaborator reports throttling.
//
//   - RateLimiter: a token bucket that paces outbound calls to the
//     generative-AI API.
//
// Usage:
//
//	cd := resilience.NewCooldown(nil)
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: 2,
//	    Delay:       2 * time.Second,
//	    RetryIf:     isRateLimited,
//	})
//
//	if cd.Active() {
//	    return ErrThrottled
//	}
//	err := retry.Execute(ctx, func(ctx context.Context) error {
//	    err := callGemini(ctx)
//	    if isRateLimited(err) {
//	        cd.Trip(time.Minute)
//	    }
//	    return err
//	})
package resilience
