package containerproxy

import (
	"context"
	"sync"

	"github.com/ow-runtime/containerproxy/internal/proxy"
	"golang.org/x/sync/errgroup"
)

// Compile-time interface satisfaction check.
var _ Pool = (*pool)(nil)

// pool is the concrete Pool implementation returned by NewPool.
//
// proxies is guarded by mu rather than a sync.Map: Spawn/Remove/Shutdown all
// need read-modify-write semantics (check-then-insert, check-then-delete,
// drain-then-clear) that a sync.Map cannot express atomically. Every method
// that runs one of a tracked proxy's own operations (Dispatch, the
// ContainerRemoved handler) does so without holding mu, since a Proxy's
// event loop is independently safe for concurrent use.
type pool struct {
	cfg poolConfig

	mu           sync.Mutex
	proxies      map[string]*proxy.Proxy
	shuttingDown bool
}

// NewPool constructs a Pool. Panics if the resulting configuration is
// invalid; see the individual With* functions for per-option constraints.
// WithFactory, WithAcker, WithStore, WithLogCollector and WithNotify are
// required.
func NewPool(opts ...PoolOption) Pool {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		panic("containerproxy: invalid pool config: " + err.Error())
	}
	return &pool{
		cfg:     cfg,
		proxies: make(map[string]*proxy.Proxy),
	}
}

func (p *pool) Spawn(id string, exec ActionExec, memoryMB int) error {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return ErrPoolShuttingDown
	}
	if _, exists := p.proxies[id]; exists {
		p.mu.Unlock()
		return ErrAlreadyTracked
	}
	pxCfg := p.cfg.toProxyConfig(id)
	userNotify := pxCfg.Notify
	pxCfg.Notify = func(e proxy.Event) {
		if _, ok := e.(ContainerRemoved); ok {
			p.untrack(id)
		}
		userNotify(e)
	}
	px := proxy.NewProxy(id, pxCfg)
	p.proxies[id] = px
	p.mu.Unlock()

	return px.Send(Start{Exec: exec, MemoryMB: memoryMB})
}

func (p *pool) Dispatch(id string, run Run) error {
	px, ok := p.Get(id)
	if !ok {
		return ErrUnknownProxy
	}
	return px.Send(run)
}

func (p *pool) Remove(id string) error {
	px, ok := p.Get(id)
	if !ok {
		return ErrUnknownProxy
	}
	return px.Send(Remove{})
}

func (p *pool) Get(id string) (*Proxy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	px, ok := p.proxies[id]
	return px, ok
}

// untrack removes id from the pool's registry. Safe to call even if id is
// already gone. Spawn wraps the proxy's Notify so this runs on
// ContainerRemoved, keeping the registry from growing unboundedly as proxies
// finish their lifecycle on their own (pause timeout with no resume, fatal
// init failure); the user's own Notify callback still receives every event.
func (p *pool) untrack(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.proxies, id)
}

// Shutdown destroys every tracked proxy concurrently, bounded by
// ShutdownConcurrency in-flight at a time and ShutdownTimeout overall
// (mirroring the teacher's parallel-stop idiom in Manager.Shutdown, adapted
// to use errgroup for the bounded fan-out the teacher's cleanup package uses
// elsewhere). Safe to call multiple times: the first call drains every
// proxy; subsequent calls see an empty registry and return immediately.
func (p *pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return nil
	}
	p.shuttingDown = true
	targets := make([]*proxy.Proxy, 0, len(p.proxies))
	for _, px := range p.proxies {
		targets = append(targets, px)
	}
	p.proxies = make(map[string]*proxy.Proxy)
	p.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ShutdownConcurrency)
	for _, px := range targets {
		g.Go(func() error {
			if err := px.Send(Remove{}); err != nil && err != ErrAlreadyRemoving {
				return err
			}
			select {
			case <-px.Done():
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}
