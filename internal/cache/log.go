package cache

import (
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger, stored as an atomic pointer so reads
// and writes are both safe for concurrent use. A nil value means no custom
// logger was set via SetLogger; Logger falls back to a cached
// slog.Default()-derived logger.
var logger atomic.Pointer[slog.Logger]

var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the package-level logger, defaulting to slog.Default() with
// a "component":"cache" attribute if SetLogger has never been called.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "cache")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// SetLogger replaces the package-level logger. Passing nil resets it to the
// slog.Default()-derived logger, re-derived on the next Logger call.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
