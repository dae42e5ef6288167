package proxy

import "github.com/ow-runtime/containerproxy/internal/sentinel"

// ErrInvalidTransition names an event that the current state does not
// accept. The proxy logs and ignores such events rather than treating them
// as fatal; no Proxy method returns this error.
const ErrInvalidTransition = sentinel.Error("proxy: event not valid in current state")

// ErrAlreadyRemoving is returned by Send when the proxy has already started
// (or completed) its removal sequence.
const ErrAlreadyRemoving = sentinel.Error("proxy: proxy is removing or already removed")

// ErrCreationFailed means factory.create returned no sandbox at all.
const ErrCreationFailed = sentinel.Error("proxy: sandbox creation failed")

// ErrInitFailedDeveloper means initialize failed in a way attributable to
// the action's own code.
const ErrInitFailedDeveloper = sentinel.Error("proxy: initialization failed (developer error)")

// ErrInitFailedSystem means initialize failed for a platform reason.
const ErrInitFailedSystem = sentinel.Error("proxy: initialization failed (system error)")

// ErrRunFailedContainer means run failed at the container/transport level;
// the sandbox is no longer trustworthy and must be destroyed.
const ErrRunFailedContainer = sentinel.Error("proxy: run failed (container error)")

// ErrLogCollectFailed means log collection failed in a way that is always
// treated as fatal to the sandbox, regardless of whether partial logs were
// recovered.
const ErrLogCollectFailed = sentinel.Error("proxy: log collection failed")

// ErrSuspendFailed means ops.Suspend returned an error. The sandbox is
// considered gone; ContainerRemoved is emitted immediately.
const ErrSuspendFailed = sentinel.Error("proxy: suspend failed")

// ErrResumeFailed means ops.Resume returned an error. The pending Run is
// rescheduled and the sandbox is destroyed.
const ErrResumeFailed = sentinel.Error("proxy: resume failed")
