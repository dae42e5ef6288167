package proxy

import "sync"

// CounterMap is the default in-memory [SharedCounter]: a mutex-guarded map
// keyed by namespace. It does not replicate across processes — spec.md §9
// treats cluster-wide replication as an out-of-scope collaborator behind
// this same interface.
type CounterMap struct {
	mu sync.Mutex
	m  map[string]int
}

// NewCounterMap returns an empty CounterMap.
func NewCounterMap() *CounterMap {
	return &CounterMap{m: make(map[string]int)}
}

// Incr adds delta to namespace's counter and returns the new value.
func (c *CounterMap) Incr(namespace string, delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[namespace] += delta
	return c.m[namespace]
}

// Load returns namespace's current counter value.
func (c *CounterMap) Load(namespace string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[namespace]
}
