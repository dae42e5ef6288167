package proxy

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/ow-runtime/containerproxy/internal/activation"
)

// ContainerOps is the abstract capability set over one sandbox (spec.md
// §4.1). Implementations — a Docker driver, a Kubernetes driver, a fake for
// tests — are out of scope here; the proxy depends only on this interface.
//
// Every method fails with a typed error on timeout, transport failure, or a
// non-zero sandbox exit. Implementations must be safe to call only from the
// single proxy that owns the sandbox; ContainerOps is not designed for
// concurrent use by multiple proxies.
type ContainerOps interface {
	// Initialize runs the action's initializer. Returns the interval the
	// initializer ran for.
	Initialize(ctx context.Context, initPayload json.RawMessage, timeout time.Duration, concurrency int) (activation.Interval, error)

	// Run invokes the action once. Returns the interval the invocation ran
	// for and its response. A non-nil error means the sandbox itself failed
	// (container/transport level); a nil error with a non-Success response
	// kind means the action ran and reported its own failure.
	Run(ctx context.Context, params, env json.RawMessage, timeout time.Duration, concurrency int) (activation.Interval, activation.Response, error)

	// Logs returns a lazily-read stream of the sandbox's log output since
	// the last call, up to limit bytes. If waitForSentinel is true, Logs
	// blocks until the per-activation sentinel marker appears or ctx is
	// done.
	Logs(ctx context.Context, limit int64, waitForSentinel bool) (io.ReadCloser, error)

	// Suspend closes any kept HTTP connection into the sandbox.
	Suspend(ctx context.Context) error

	// Resume re-establishes the HTTP connection into the sandbox.
	Resume(ctx context.Context) error

	// Destroy reclaims all sandbox resources. Idempotent.
	Destroy(ctx context.Context) error
}

// Factory creates a new sandbox bound to the given action executable and
// memory reservation.
type Factory func(ctx context.Context, exec ActionExec, memoryMB int) (ContainerOps, error)

// Acknowledgment is the payload published by [Acker.Ack] — the activation
// result plus the annotations computed in [internal/activation].
type Acknowledgment struct {
	Response    activation.Response
	Annotations activation.Annotations
}

// Acker publishes an activation's result to the calling controller. Must be
// invoked exactly once per accepted Run (spec.md §6).
type Acker interface {
	Ack(ctx context.Context, txn activation.TransactionID, act activation.ActivationID, blocking bool, controllerID, userID string, ack Acknowledgment) error
}

// Store persists an activation record. The proxy skips Store for every run
// of an action whose log limit is zero; it does not look at the size of the
// response when deciding this.
type Store interface {
	Store(ctx context.Context, txn activation.TransactionID, act activation.ActivationID, userContext any) error
}

// ActivationLogs is the result of a LogCollector.Collect call.
type ActivationLogs struct {
	Lines    []string
	Complete bool
}

// LogCollector gathers a sandbox's log output for one activation.
type LogCollector interface {
	Collect(ctx context.Context, txn activation.TransactionID, user string, act activation.ActivationID, ops ContainerOps, action ActionMeta) (ActivationLogs, error)
}

// PartialLogsError wraps a LogCollector failure that still recovered some
// log lines before failing. The proxy persists Logs before destroying the
// sandbox (spec.md §6 "Log collector contract").
type PartialLogsError struct {
	Logs ActivationLogs
	Err  error
}

func (e *PartialLogsError) Error() string { return "partial log collection: " + e.Err.Error() }
func (e *PartialLogsError) Unwrap() error { return e.Err }

// SharedCounter is the pluggable boundary for cluster-wide per-namespace
// counters. A [ProxyConfig] carries one, but the proxy does not call Incr or
// Load on it. The out-of-scope CRDT replicator described in spec.md §9 is
// never implemented here — only this interface and an in-memory default
// ([CounterMap]).
type SharedCounter interface {
	Incr(namespace string, delta int) int
	Load(namespace string) int
}
