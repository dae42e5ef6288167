package containerproxy

import (
	"errors"
	"fmt"
	"time"

	"github.com/ow-runtime/containerproxy/internal/proxy"
)

// poolConfig holds configuration for a Pool. This unexported type wraps
// proxy.ProxyConfig via embedding, keeping internal/proxy types out of the
// public API signature while avoiding field-by-field duplication.
type poolConfig struct {
	proxy.ProxyConfig

	ShutdownTimeout     time.Duration
	ShutdownConcurrency int

	// poolNotify is the user-supplied callback (set via WithNotify),
	// invoked with the proxy's id alongside every Event it emits.
	poolNotify func(id string, e Event)
}

// toProxyConfig returns the embedded proxy.ProxyConfig, after installing an
// adapter from the pool's (id, Event) notify callback to the single-Event
// form a Proxy expects.
func (c poolConfig) toProxyConfig(id string) proxy.ProxyConfig {
	cfg := c.ProxyConfig
	notify := c.poolNotify
	cfg.Notify = func(e proxy.Event) { notify(id, e) }
	return cfg
}

// validate reports every violated invariant in c, joined via errors.Join.
// proxy.ProxyConfig.Validate cannot check this yet, since Notify is installed
// per-proxy by toProxyConfig; poolNotify stands in for it here.
func (c poolConfig) validate() error {
	var errs []error
	if c.poolNotify == nil {
		errs = append(errs, errors.New("notify callback must not be nil"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	if c.ShutdownConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("shutdown concurrency must be positive, got %d", c.ShutdownConcurrency))
	}
	probe := c.ProxyConfig
	probe.Notify = func(proxy.Event) {}
	if err := probe.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// defaultPoolConfig returns a poolConfig populated with all default values.
// Both NewPool and test helpers use this to avoid duplicating the default
// field assignments.
func defaultPoolConfig() poolConfig {
	return poolConfig{
		ProxyConfig:         proxy.DefaultProxyConfig(),
		ShutdownTimeout:     DefaultShutdownTimeout,
		ShutdownConcurrency: DefaultShutdownConcurrency,
	}
}
