package containerproxy

import "github.com/ow-runtime/containerproxy/internal/cache"

// ContainerDataCache is a multi-reader/single-writer cache with read
// coalescing (spec.md §4.3): concurrent Lookups for the same key and scope
// share one loader call, while a matching Invalidate arriving mid-load is
// deferred until the in-flight operation completes instead of racing it.
type ContainerDataCache[K comparable, V any] = cache.Cache[K, V]

// CacheConfig holds the tunables for a ContainerDataCache.
type CacheConfig = cache.Config

// NewContainerDataCache constructs a ContainerDataCache. Panics if cfg fails
// Validate.
func NewContainerDataCache[K comparable, V any](cfg CacheConfig) *ContainerDataCache[K, V] {
	return cache.New[K, V](cfg)
}
