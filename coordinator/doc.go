// Package coordinator wraps upstream calls with cache lookup, in-flight
// request coalescing, a process-wide rate-limit cooldown and bounded retry.
//
// Every call goes through Execute, which checks in this order:
//
//  1. the TTL cache: a fresh entry is returned without calling the producer
//  2. the in-flight registry: a caller for a key whose producer is already
//     running joins that call and receives the same value or error
//  3. the cooldown: while a rate-limit cooldown is active new producer calls
//     fail fast with a *ThrottledError. A new flight first looks in the cache
//     again, since an earlier flight may have just filled it.
//  4. the producer, retried while the Classifier reports a rate limit
//
// Successful results are cached with the request's TTL. Failures are never
// cached.
//
// Producers run on a context detached from the caller's cancellation, so a
// result is still cached when every waiting caller has gone away.
package coordinator
