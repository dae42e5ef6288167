package containerproxy

import (
	"time"

	"github.com/ow-runtime/containerproxy/internal/cache"
	"github.com/ow-runtime/containerproxy/internal/proxy"
)

// Default configuration values for NewPool.
// These constants are exported so callers can reference the defaults
// when building custom configurations relative to them (e.g.,
// 2 * DefaultRunTimeout).
const (
	// DefaultPauseGrace is how long a warm, idle sandbox waits before being
	// suspended.
	DefaultPauseGrace = proxy.DefaultPauseGrace

	// DefaultInitTimeout bounds a sandbox's initialize call.
	DefaultInitTimeout = proxy.DefaultInitTimeout

	// DefaultRunTimeout bounds a sandbox's run call.
	DefaultRunTimeout = proxy.DefaultRunTimeout

	// DefaultAckTimeout bounds the Acker.Ack call made after every run.
	DefaultAckTimeout = proxy.DefaultAckTimeout

	// DefaultStoreTimeout bounds the Store.Store call made after every run.
	DefaultStoreTimeout = proxy.DefaultStoreTimeout

	// DefaultDestroyTimeout bounds a sandbox's destroy call.
	DefaultDestroyTimeout = proxy.DefaultDestroyTimeout

	// DefaultShutdownTimeout bounds Pool.Shutdown's parallel sandbox
	// teardown fan-out.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultShutdownConcurrency is the maximum number of sandboxes torn
	// down concurrently during Shutdown.
	DefaultShutdownConcurrency = 16

	// DefaultCacheCapacity bounds the number of Cached entries a
	// [ContainerDataCache] holds before evicting the least-recently-used one.
	DefaultCacheCapacity = cache.DefaultCapacity

	// DefaultCacheTTL is the recommended TTL for Cached entries.
	DefaultCacheTTL = cache.DefaultTTL
)

// DefaultCacheConfig returns the default [ContainerDataCache] configuration:
// a [DefaultCacheTTL] (5 minute) TTL and a [DefaultCacheCapacity] LRU bound.
func DefaultCacheConfig() CacheConfig {
	return cache.DefaultConfig()
}
