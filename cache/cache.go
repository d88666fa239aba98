// Package cache provides key-value store implementations for the tlcache
// repository: an in-process store, a Redis store with native set commands,
// a SQLite store, and a Redis-backed lock.
//
// All stores report a miss as (nil, false, nil) and forget absent keys
// without error. A non-positive TTL passed to Put means the entry is
// already expired; it never means "no expiry" (use Forever for that).
package cache
