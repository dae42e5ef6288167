package containerproxy

import (
	"log/slog"

	"github.com/ow-runtime/containerproxy/internal/cache"
	"github.com/ow-runtime/containerproxy/internal/proxy"
)

// SetLogger replaces the package-level logger used by both the proxy and
// cache subsystems. This allows applications to integrate containerproxy
// logging with their own logging infrastructure. The provided logger should
// already have any desired attributes; containerproxy will not add
// additional attributes.
//
// If l is nil, each subsystem's logger resets to its own default:
// slog.Default() with a "component" attribute, re-derived on the next
// internal Logger() call and then cached. Call SetLogger(nil) after
// slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other containerproxy
// operations.
//
// Example:
//
//	containerproxy.SetLogger(myLogger.With("component", "containerproxy"))
func SetLogger(l *slog.Logger) {
	proxy.SetLogger(l)
	cache.SetLogger(l)
}
