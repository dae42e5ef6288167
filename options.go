package containerproxy

import (
	"fmt"
	"time"

	"github.com/ow-runtime/containerproxy/internal/clock"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("containerproxy: %s must be greater than 0, got %v", name, v))
	}
}

// PoolOption configures a Pool during construction via NewPool.
// Each With* function returns a PoolOption that sets a specific field.
//
// Several With* functions panic on invalid input (nil collaborators,
// non-positive durations). These panics are intentional: option values are
// typically compile-time constants or package-level variables, so an invalid
// value indicates a programmer error rather than a runtime condition. The
// pattern mirrors [regexp.MustCompile] — fail fast during initialization
// instead of returning errors that would be universally fatal anyway.
type PoolOption func(*poolConfig)

// WithFactory sets the Factory used to create sandboxes. Required.
// Panics if factory is nil.
func WithFactory(factory Factory) PoolOption {
	if factory == nil {
		panic("containerproxy: factory must not be nil")
	}
	return func(c *poolConfig) { c.Factory = factory }
}

// WithAcker sets the Acker used to publish activation results. Required.
// Panics if acker is nil.
func WithAcker(acker Acker) PoolOption {
	if acker == nil {
		panic("containerproxy: acker must not be nil")
	}
	return func(c *poolConfig) { c.Acker = acker }
}

// WithStore sets the Store used to persist activation records. Required.
// Panics if store is nil.
func WithStore(store Store) PoolOption {
	if store == nil {
		panic("containerproxy: store must not be nil")
	}
	return func(c *poolConfig) { c.Store = store }
}

// WithLogCollector sets the collaborator used to gather sandbox log output.
// Required. Panics if logs is nil.
func WithLogCollector(logs LogCollector) PoolOption {
	if logs == nil {
		panic("containerproxy: log collector must not be nil")
	}
	return func(c *poolConfig) { c.Logs = logs }
}

// WithCounter sets the shared per-namespace counter. Defaults to a fresh
// [CounterMap]. Panics if counter is nil.
func WithCounter(counter SharedCounter) PoolOption {
	if counter == nil {
		panic("containerproxy: counter must not be nil")
	}
	return func(c *poolConfig) { c.Counter = counter }
}

// WithNotify sets the callback invoked with every outbound Event a tracked
// proxy emits, alongside the id it was Spawned under. Required.
// Panics if notify is nil.
func WithNotify(notify func(id string, e Event)) PoolOption {
	if notify == nil {
		panic("containerproxy: notify callback must not be nil")
	}
	return func(c *poolConfig) { c.poolNotify = notify }
}

// WithPauseGrace sets how long a warm, idle sandbox waits before being
// suspended.
//
// Default: [DefaultPauseGrace].
//
// Panics if d <= 0.
func WithPauseGrace(d time.Duration) PoolOption {
	requirePositive("pause grace", d)
	return func(c *poolConfig) { c.PauseGrace = d }
}

// WithInitTimeout bounds a sandbox's initialize call.
//
// Default: [DefaultInitTimeout].
//
// Panics if d <= 0.
func WithInitTimeout(d time.Duration) PoolOption {
	requirePositive("init timeout", d)
	return func(c *poolConfig) { c.InitTimeout = d }
}

// WithRunTimeout bounds a sandbox's run call.
//
// Default: [DefaultRunTimeout].
//
// Panics if d <= 0.
func WithRunTimeout(d time.Duration) PoolOption {
	requirePositive("run timeout", d)
	return func(c *poolConfig) { c.RunTimeout = d }
}

// WithAckTimeout bounds the Acker.Ack call made after every run.
//
// Default: [DefaultAckTimeout].
//
// Panics if d <= 0.
func WithAckTimeout(d time.Duration) PoolOption {
	requirePositive("ack timeout", d)
	return func(c *poolConfig) { c.AckTimeout = d }
}

// WithStoreTimeout bounds the Store.Store call made after every run.
//
// Default: [DefaultStoreTimeout].
//
// Panics if d <= 0.
func WithStoreTimeout(d time.Duration) PoolOption {
	requirePositive("store timeout", d)
	return func(c *poolConfig) { c.StoreTimeout = d }
}

// WithDestroyTimeout bounds a sandbox's destroy call.
//
// Default: [DefaultDestroyTimeout].
//
// Panics if d <= 0.
func WithDestroyTimeout(d time.Duration) PoolOption {
	requirePositive("destroy timeout", d)
	return func(c *poolConfig) { c.DestroyTimeout = d }
}

// WithShutdownTimeout bounds Pool.Shutdown's parallel sandbox teardown
// fan-out.
//
// Default: [DefaultShutdownTimeout].
//
// Panics if d <= 0.
func WithShutdownTimeout(d time.Duration) PoolOption {
	requirePositive("shutdown timeout", d)
	return func(c *poolConfig) { c.ShutdownTimeout = d }
}

// WithShutdownConcurrency sets the maximum number of sandboxes torn down
// concurrently during Shutdown.
//
// Default: [DefaultShutdownConcurrency].
//
// Panics if n <= 0.
func WithShutdownConcurrency(n int) PoolOption {
	requirePositive("shutdown concurrency", n)
	return func(c *poolConfig) { c.ShutdownConcurrency = n }
}

// WithClock sets the clock used for wall-clock reads. Tests substitute a
// fake clock for deterministic timing. Panics if clk is nil.
func WithClock(clk clock.Clock) PoolOption {
	if clk == nil {
		panic("containerproxy: clock must not be nil")
	}
	return func(c *poolConfig) { c.Clock = clk }
}

// WithTimers sets the timer source used to schedule pause-grace timers.
// Tests substitute a fake timer source for deterministic timing. Panics if
// timers is nil.
func WithTimers(timers clock.TimerSource) PoolOption {
	if timers == nil {
		panic("containerproxy: timer source must not be nil")
	}
	return func(c *poolConfig) { c.Timers = timers }
}
