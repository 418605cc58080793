// Package cache provides the durable TTL cache that sits in front of every
// upstream advisory call.
//
// Entries are persisted as JSON objects of the form
//
//	{"data": <value>, "expiry": <epoch milliseconds>}
//
// under a namespaced key in a pluggable Store (memory, Redis or Postgres). An
// entry is valid while now < expiry; stale or undecodable entries are removed
// on read and reported as a miss. Store failures never surface to callers:
// the cache degrades to a no-cache mode instead.
//
// KeyBuilder derives deterministic cache keys from request parameters and
// Policy maps call sites to their explicit TTLs.
package cache
