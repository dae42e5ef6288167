package containerproxy

import "context"

// Pool coordinates a set of per-sandbox [Proxy] state machines.
//
// Callers must follow this lifecycle ordering:
//
//	NewPool → Spawn/Dispatch/Remove (repeatable, any order per id) → Shutdown
//
// Shutdown is safe to call at any point. See each method's documentation for
// detailed error conditions.
type Pool interface {
	// Spawn creates and tracks a new Proxy under id, sending it a Start
	// message to prewarm a sandbox for exec. Returns ErrAlreadyTracked if id
	// is already tracked, or ErrPoolShuttingDown if Shutdown has been
	// called.
	Spawn(id string, exec ActionExec, memoryMB int) error

	// Dispatch delivers a Run message to the proxy tracked under id.
	// Returns ErrUnknownProxy if no proxy is tracked under id.
	Dispatch(id string, run Run) error

	// Remove requests that the proxy tracked under id destroy its sandbox
	// and terminate. The proxy is untracked once its ContainerRemoved event
	// fires. Returns ErrUnknownProxy if no proxy is tracked under id.
	Remove(id string) error

	// Get returns the proxy tracked under id, and whether it was found.
	Get(id string) (*Proxy, bool)

	// Shutdown removes every tracked proxy concurrently, bounded by the
	// pool's ShutdownTimeout, and waits for each one's event loop to drain.
	// Safe to call multiple times; subsequent calls return nil immediately.
	Shutdown(ctx context.Context) error
}
