package proxy

import (
	"errors"
	"fmt"
	"time"

	"github.com/ow-runtime/containerproxy/internal/clock"
)

// Default timeouts, mirroring the teacher's DefaultMaxStartRetries /
// InstanceConfig style of named, documented defaults.
const (
	DefaultPauseGrace     = 1 * time.Minute
	DefaultInitTimeout    = 60 * time.Second
	DefaultRunTimeout     = 60 * time.Second
	DefaultAckTimeout     = 30 * time.Second
	DefaultStoreTimeout   = 30 * time.Second
	DefaultDestroyTimeout = 30 * time.Second
)

// ActionExec describes the code a sandbox must be created to run.
type ActionExec struct {
	Kind   string // runtime kind, e.g. "nodejs:20"
	Code   string
	Binary bool
}

// ActionLimits are the resource limits attached to an action, surfaced to
// the activation's annotations verbatim (spec.md §4.2).
type ActionLimits struct {
	TimeoutMS        int
	MemoryMB         int
	ConcurrencyLimit int
	LogLimitBytes    int64
}

// ActionMeta describes the action a proxy is bound to.
type ActionMeta struct {
	Name      string
	Namespace string
	Path      string
	Kind      string
	Exec      ActionExec
	Limits    ActionLimits
}

// ProxyConfig holds the tunables and collaborators for a [Proxy]. The zero
// value is invalid; use [DefaultProxyConfig] and override fields.
type ProxyConfig struct {
	// PauseGrace is the idle timer driving Ready -> Pausing.
	PauseGrace time.Duration
	// InitTimeout bounds ContainerOps.Initialize calls.
	InitTimeout time.Duration
	// RunTimeout bounds ContainerOps.Run calls.
	RunTimeout time.Duration
	// AckTimeout bounds Acker.Ack calls.
	AckTimeout time.Duration
	// StoreTimeout bounds Store.Store calls.
	StoreTimeout time.Duration
	// DestroyTimeout bounds ContainerOps.Destroy calls.
	DestroyTimeout time.Duration

	// Clock and Timers provide monotonic time and single-shot timers so
	// tests can drive pause/resume timing deterministically.
	Clock  clock.Clock
	Timers clock.TimerSource

	// Factory creates sandboxes. Required.
	Factory Factory
	// Acker publishes activation results. Required.
	Acker Acker
	// Store persists activation records. Required.
	Store Store
	// Logs collects sandbox log output. Required.
	Logs LogCollector
	// Counter is the shared per-namespace counter. DefaultProxyConfig sets a
	// fresh CounterMap; a nil Counter is accepted and left nil.
	Counter SharedCounter

	// Notify receives every outbound [Event] the proxy emits (NeedWork,
	// ContainerRemoved, RescheduleJob, Transition). Required.
	Notify func(Event)
}

// DefaultProxyConfig returns a ProxyConfig with default timeouts and a fresh
// [CounterMap]. Callers must still set Factory, Acker, Store, Logs, and
// Notify.
func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		PauseGrace:     DefaultPauseGrace,
		InitTimeout:    DefaultInitTimeout,
		RunTimeout:     DefaultRunTimeout,
		AckTimeout:     DefaultAckTimeout,
		StoreTimeout:   DefaultStoreTimeout,
		DestroyTimeout: DefaultDestroyTimeout,
		Clock:          clock.SystemClock{},
		Timers:         clock.SystemTimerSource{},
		Counter:        NewCounterMap(),
	}
}

// Validate reports every violated invariant in cfg, joined via errors.Join.
func (cfg ProxyConfig) Validate() error {
	var errs []error
	if cfg.PauseGrace <= 0 {
		errs = append(errs, fmt.Errorf("pause grace must be positive, got %s", cfg.PauseGrace))
	}
	if cfg.InitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("init timeout must be positive, got %s", cfg.InitTimeout))
	}
	if cfg.RunTimeout <= 0 {
		errs = append(errs, fmt.Errorf("run timeout must be positive, got %s", cfg.RunTimeout))
	}
	if cfg.AckTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ack timeout must be positive, got %s", cfg.AckTimeout))
	}
	if cfg.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("store timeout must be positive, got %s", cfg.StoreTimeout))
	}
	if cfg.DestroyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("destroy timeout must be positive, got %s", cfg.DestroyTimeout))
	}
	if cfg.Clock == nil {
		errs = append(errs, errors.New("clock must not be nil"))
	}
	if cfg.Timers == nil {
		errs = append(errs, errors.New("timer source must not be nil"))
	}
	if cfg.Factory == nil {
		errs = append(errs, errors.New("factory must not be nil"))
	}
	if cfg.Acker == nil {
		errs = append(errs, errors.New("acker must not be nil"))
	}
	if cfg.Store == nil {
		errs = append(errs, errors.New("store must not be nil"))
	}
	if cfg.Logs == nil {
		errs = append(errs, errors.New("log collector must not be nil"))
	}
	if cfg.Notify == nil {
		errs = append(errs, errors.New("notify callback must not be nil"))
	}
	return errors.Join(errs...)
}
