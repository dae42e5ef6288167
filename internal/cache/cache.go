package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is the multi-reader/single-writer metadata cache described in
// spec.md §4.3. K is the backing-store key type; V is the cached value type.
//
// Per-entry state transitions are lock-free, driven by compare-and-swap on
// [entry.state]. The Cache's own mutex protects only the map and LRU-list
// structure — never held across a loader, writer or invalidator call.
//
// It is safe for concurrent use by multiple goroutines.
type Cache[K comparable, V any] struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[K]*entry[V]
	order   *list.List // list.Element.Value is K; front = most recently used

	group singleflight.Group
}

// New creates a Cache from cfg. Panics if cfg fails [Config.Validate] — an
// invalid cache configuration is a programmer error, not a runtime
// condition callers should need to check for.
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("cache: invalid config: %v", err))
	}
	return &Cache[K, V]{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[K]*entry[V]),
		order:   list.New(),
	}
}

// Lookup returns the value for key, reading through loader on a cache miss.
//
// scope identifies the calling context (e.g. the id of the proxy driving the
// lookup). Concurrent Lookup calls for the same key coalesce onto a single
// loader invocation only when they share the same scope — spec.md §3's
// "coalesce onto one backing read only within a single proxy." A call with a
// different scope that observes an in-flight read for the same key bypasses
// the cache entirely (read-around): it calls loader itself and neither
// installs nor waits on any entry.
func (c *Cache[K, V]) Lookup(ctx context.Context, key K, scope string, loader func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		switch e.loadState() {
		case stateCached:
			if c.isExpiredLocked(e) {
				c.evictLocked(key, e)
			} else {
				c.touchLocked(e)
				v := e.value
				c.mu.Unlock()
				c.recordHit(key)
				return v, nil
			}
		case stateReadInProgress:
			sameScope := e.scope == scope
			c.mu.Unlock()
			if sameScope {
				c.recordCoalesced(key)
				return c.runRead(ctx, key, scope, e, loader)
			}
			c.recordMiss(key, "read-around")
			return loader(ctx)
		case stateWriteInProgress, stateInvalidateInProgress, stateInvalidateWhenDone:
			c.mu.Unlock()
			c.recordMiss(key, "read-around")
			return loader(ctx)
		}
	}

	// Initial: this call installs the entry and becomes its owner.
	e = &entry[V]{scope: scope}
	e.storeState(stateReadInProgress)
	c.entries[key] = e
	c.mu.Unlock()
	c.recordMiss(key, "install")
	return c.runRead(ctx, key, scope, e, loader)
}

// runRead executes loader under a singleflight key scoped to (scope, key),
// so every Lookup call sharing that scope — whether it installed the entry
// or joined an in-progress read — shares exactly one loader invocation and
// its result. Completion bookkeeping (promote to Cached, or evict if an
// invalidation raced in) runs inside the singleflight call, so it executes
// exactly once regardless of how many callers joined.
func (c *Cache[K, V]) runRead(ctx context.Context, key K, scope string, e *entry[V], loader func(context.Context) (V, error)) (V, error) {
	result, err, _ := c.group.Do(c.sfKey("r", scope, key), func() (any, error) {
		v, lerr := loader(ctx)
		c.completeRead(key, e, v, lerr)
		if lerr != nil {
			return nil, lerr
		}
		return completion[V]{value: v}, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(completion[V]).value, nil
}

// completion carries runRead's outcome through the singleflight call without
// requiring V to be comparable to a sentinel "no value" marker.
type completion[V any] struct {
	value V
}

// completeRead finalizes a read: on success it promotes the entry to Cached
// unless an invalidation was requested while the read was in flight (in
// which case it evicts instead, per spec.md §8 scenario 6), and on failure
// it evicts the entry outright so the next Lookup retries from scratch.
func (c *Cache[K, V]) completeRead(key K, e *entry[V], v V, err error) {
	if err != nil {
		c.mu.Lock()
		c.deleteIfCurrent(key, e)
		c.mu.Unlock()
		return
	}

	if e.casState(stateReadInProgress, stateCached) {
		c.mu.Lock()
		e.value = v
		e.expiresAt = c.now().Add(c.cfg.TTL)
		e.elem = c.order.PushFront(key)
		c.evictOverCapacityLocked()
		c.mu.Unlock()
		return
	}

	// CAS lost: someone else changed the state while the read was in
	// flight. The only legal transition out of ReadInProgress besides our
	// own promotion is InvalidateWhenDone (spec.md §4.3) — evict silently,
	// matching the chosen "caller sees loaded value, subsequent lookup
	// re-reads" resolution. Any other observed state is an invariant
	// violation; surface it so it is never silently swallowed.
	if e.loadState() != stateInvalidateWhenDone {
		Logger().Error("cache: entry left ReadInProgress in an unexpected state",
			"key", fmt.Sprint(key), "state", e.loadState())
	}
	c.mu.Lock()
	c.deleteIfCurrent(key, e)
	c.mu.Unlock()
}

// Update writes value through writer and, on success, makes it servable via
// Lookup. scope is recorded on the entry for telemetry only — unlike reads,
// concurrent Update calls for the same key always coalesce onto a single
// writer invocation regardless of scope, since there is at most one writer
// per key at a time (spec.md §4.3 invariant). Every coalesced caller
// receives the value the winning writer call actually installed, not its
// own (possibly different) argument — a caller whose Update call coalesced
// onto another's in-flight write never ran its own writer, so echoing its
// own value back would falsely claim it was the one persisted/cached.
func (c *Cache[K, V]) Update(ctx context.Context, key K, scope string, value V, writer func(context.Context) error) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{scope: scope}
		c.entries[key] = e
	}
	e.scope = scope
	e.storeState(stateWriteInProgress)
	if e.elem != nil {
		// A previously Cached entry leaves the LRU list while the write is
		// in flight; completeWrite re-inserts it on success.
		c.order.Remove(e.elem)
		e.elem = nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do(c.sfKey("w", "", key), func() (any, error) {
		werr := writer(ctx)
		c.completeWrite(key, e, value, werr)
		if werr != nil {
			return nil, werr
		}
		return completion[V]{value: value}, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(completion[V]).value, nil
}

func (c *Cache[K, V]) completeWrite(key K, e *entry[V], value V, err error) {
	if err != nil {
		c.mu.Lock()
		c.deleteIfCurrent(key, e)
		c.mu.Unlock()
		return
	}

	if e.casState(stateWriteInProgress, stateCached) {
		c.mu.Lock()
		e.value = value
		e.expiresAt = c.now().Add(c.cfg.TTL)
		e.elem = c.order.PushFront(key)
		c.evictOverCapacityLocked()
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.deleteIfCurrent(key, e)
	c.mu.Unlock()
}

// Invalidate removes key from the cache. If the entry is Cached, invalidator
// runs before eviction (e.g. to delete the backing-store row) and its error
// is returned. If a read or write is in flight, Invalidate marks the entry
// InvalidateWhenDone and returns immediately without running invalidator —
// the owning read or write evicts it on completion. If an invalidation is
// already in flight or scheduled, Invalidate is a no-op (piggyback): the
// caller is guaranteed the entry will not be Cached once the in-flight
// invalidation completes.
func (c *Cache[K, V]) Invalidate(ctx context.Context, key K, invalidator func(context.Context) error) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	switch e.loadState() {
	case stateCached:
		if !e.casState(stateCached, stateInvalidateInProgress) {
			// Lost the race — another operation changed the entry's state
			// between our read and our CAS attempt. Re-evaluate from the
			// top rather than assume any particular outcome.
			return c.Invalidate(ctx, key, invalidator)
		}
		var err error
		if invalidator != nil {
			err = invalidator(ctx)
		}
		c.mu.Lock()
		c.deleteIfCurrent(key, e)
		c.mu.Unlock()
		return err

	case stateReadInProgress:
		e.casState(stateReadInProgress, stateInvalidateWhenDone)
		return nil

	case stateWriteInProgress:
		e.casState(stateWriteInProgress, stateInvalidateWhenDone)
		return nil

	case stateInvalidateInProgress, stateInvalidateWhenDone:
		// Already scheduled for eviction — piggyback on it.
		return nil

	default:
		return nil
	}
}

// deleteIfCurrent removes key from entries and the LRU list, but only if the
// map still points at e — protects against deleting a newer entry that
// replaced e for the same key after eviction raced with a fresh install.
func (c *Cache[K, V]) deleteIfCurrent(key K, e *entry[V]) {
	if cur, ok := c.entries[key]; ok && cur == e {
		delete(c.entries, key)
		if e.elem != nil {
			c.order.Remove(e.elem)
			e.elem = nil
		}
	}
}

// evictLocked removes a Cached entry discovered to be TTL-expired. Caller
// holds c.mu.
func (c *Cache[K, V]) evictLocked(key K, e *entry[V]) {
	delete(c.entries, key)
	if e.elem != nil {
		c.order.Remove(e.elem)
		e.elem = nil
	}
}

// evictOverCapacityLocked pops least-recently-used Cached entries until the
// cache is back within its configured capacity. Caller holds c.mu.
func (c *Cache[K, V]) evictOverCapacityLocked() {
	for len(c.entries) > c.cfg.Capacity {
		back := c.order.Back()
		if back == nil {
			return
		}
		key := back.Value.(K)
		c.order.Remove(back)
		delete(c.entries, key)
	}
}

func (c *Cache[K, V]) isExpiredLocked(e *entry[V]) bool {
	return c.now().After(e.expiresAt)
}

func (c *Cache[K, V]) touchLocked(e *entry[V]) {
	if e.elem != nil {
		c.order.MoveToFront(e.elem)
	}
}

func (c *Cache[K, V]) sfKey(op, scope string, key K) string {
	return op + "\x00" + scope + "\x00" + fmt.Sprint(key)
}

func (c *Cache[K, V]) recordHit(key K) {
	Logger().Debug("cache hit", "key", fmt.Sprint(key))
}

func (c *Cache[K, V]) recordCoalesced(key K) {
	Logger().Debug("cache coalesced", "key", fmt.Sprint(key))
}

func (c *Cache[K, V]) recordMiss(key K, reason string) {
	Logger().Debug("cache miss", "key", fmt.Sprint(key), "reason", reason)
}
