// Package cache implements the multi-reader/single-writer metadata cache:
// bounded-size, TTL-evicted, with per-entry state transitions driven by
// atomic compare-and-swap rather than a lock held for the duration of a
// backing-store call.
//
// The primary type is [Cache], parameterized over a comparable key type and
// an arbitrary value type. [Cache.Lookup] coalesces concurrent readers that
// share a scope (see [Cache.Lookup]'s doc for what "scope" means) onto one
// backing read via [golang.org/x/sync/singleflight]; [Cache.Update] installs
// a write lock around a single writer call; [Cache.Invalidate] either evicts
// a cached entry directly or defers eviction until a conflicting read/write
// completes.
package cache
