package containerproxy

import (
	"github.com/ow-runtime/containerproxy/internal/proxy"
	"github.com/ow-runtime/containerproxy/internal/sentinel"
)

// Sentinel errors for error inspection with errors.Is.
//
// These use the sentinel.Error const pattern instead of errors.New vars.
// sentinel.Error is a string type implementing error, allowing errors to be
// declared as const. This prevents accidental reassignment and enables
// compile-time immutability, while remaining compatible with errors.Is
// through Go's default == comparison on comparable types.
//
// Apart from ErrAlreadyRemoving, these name proxy failure kinds. A proxy
// reports such failures through acks (as response kinds) and events, so no
// Pool or Proxy method returns them.
const (
	// ErrInvalidTransition names a message that cannot be honored in the
	// proxy's current state; the proxy logs and ignores such messages.
	ErrInvalidTransition = proxy.ErrInvalidTransition

	// ErrAlreadyRemoving is returned by Dispatch/Remove once a proxy has
	// finished removing itself.
	ErrAlreadyRemoving = proxy.ErrAlreadyRemoving

	// ErrCreationFailed names a failed factory call for a sandbox.
	ErrCreationFailed = proxy.ErrCreationFailed

	// ErrInitFailedDeveloper names an initializer failure attributable to
	// the action's code.
	ErrInitFailedDeveloper = proxy.ErrInitFailedDeveloper

	// ErrInitFailedSystem names an initializer failure not attributable to
	// the action's code.
	ErrInitFailedSystem = proxy.ErrInitFailedSystem

	// ErrRunFailedContainer names a run failure at the container/transport
	// level.
	ErrRunFailedContainer = proxy.ErrRunFailedContainer

	// ErrLogCollectFailed names a log collection that failed outright.
	ErrLogCollectFailed = proxy.ErrLogCollectFailed

	// ErrSuspendFailed names a sandbox that failed to suspend cleanly.
	ErrSuspendFailed = proxy.ErrSuspendFailed

	// ErrResumeFailed names a paused sandbox that failed to resume.
	ErrResumeFailed = proxy.ErrResumeFailed
)

// Pool-level sentinel errors.
const (
	// ErrUnknownProxy is returned by Dispatch or Remove when no proxy is
	// tracked under the given id.
	ErrUnknownProxy = sentinel.Error("containerproxy: unknown proxy id")

	// ErrAlreadyTracked is returned by Spawn when a proxy already exists
	// under the given id.
	ErrAlreadyTracked = sentinel.Error("containerproxy: proxy id already tracked")

	// ErrPoolShuttingDown is returned by Spawn once Shutdown has been
	// called. Dispatch after Shutdown returns ErrUnknownProxy, since
	// Shutdown empties the registry.
	ErrPoolShuttingDown = sentinel.Error("containerproxy: pool is shutting down")
)
