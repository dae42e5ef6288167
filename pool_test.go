package containerproxy_test

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ow-runtime/containerproxy"
)

type poolFakeOps struct {
	destroyCount atomic.Int32
}

func (f *poolFakeOps) Initialize(ctx context.Context, payload json.RawMessage, timeout time.Duration, concurrency int) (containerproxy.Interval, error) {
	now := time.Now()
	return containerproxy.Interval{Start: now, End: now}, nil
}

func (f *poolFakeOps) Run(ctx context.Context, params, env json.RawMessage, timeout time.Duration, concurrency int) (containerproxy.Interval, containerproxy.Response, error) {
	now := time.Now()
	return containerproxy.Interval{Start: now, End: now}, containerproxy.Response{Kind: containerproxy.Success}, nil
}

func (f *poolFakeOps) Logs(ctx context.Context, limit int64, waitForSentinel bool) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *poolFakeOps) Suspend(ctx context.Context) error { return nil }
func (f *poolFakeOps) Resume(ctx context.Context) error  { return nil }
func (f *poolFakeOps) Destroy(ctx context.Context) error {
	f.destroyCount.Add(1)
	return nil
}

type poolFakeAcker struct{ count atomic.Int32 }

func (a *poolFakeAcker) Ack(ctx context.Context, txn containerproxy.TransactionID, act containerproxy.ActivationID,
	blocking bool, controllerID, userID string, ack containerproxy.Acknowledgment) error {
	a.count.Add(1)
	return nil
}

type poolFakeStore struct{}

func (poolFakeStore) Store(ctx context.Context, txn containerproxy.TransactionID, act containerproxy.ActivationID, userContext any) error {
	return nil
}

type poolFakeLogs struct{}

func (poolFakeLogs) Collect(ctx context.Context, txn containerproxy.TransactionID, user string,
	act containerproxy.ActivationID, ops containerproxy.ContainerOps, action containerproxy.ActionMeta) (containerproxy.ActivationLogs, error) {
	return containerproxy.ActivationLogs{Complete: true}, nil
}

func newTestPool(t *testing.T, notify func(id string, e containerproxy.Event)) (containerproxy.Pool, *poolFakeOps, *poolFakeAcker) {
	t.Helper()
	ops := &poolFakeOps{}
	acker := &poolFakeAcker{}
	p := containerproxy.NewPool(
		containerproxy.WithFactory(func(ctx context.Context, exec containerproxy.ActionExec, memoryMB int) (containerproxy.ContainerOps, error) {
			return ops, nil
		}),
		containerproxy.WithAcker(acker),
		containerproxy.WithStore(poolFakeStore{}),
		containerproxy.WithLogCollector(poolFakeLogs{}),
		containerproxy.WithNotify(notify),
		containerproxy.WithPauseGrace(10*time.Second),
	)
	return p, ops, acker
}

func TestPool_SpawnDispatchRemove(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var removed bool
	notify := func(id string, e containerproxy.Event) {
		if _, ok := e.(containerproxy.ContainerRemoved); ok {
			mu.Lock()
			removed = true
			mu.Unlock()
		}
	}

	p, ops, acker := newTestPool(t, notify)
	defer p.Shutdown(context.Background())

	action := containerproxy.ActionMeta{
		Name:      "echo",
		Namespace: "ns",
		Kind:      "nodejs:20",
		Exec:      containerproxy.ActionExec{Kind: "nodejs:20", Code: "ZnVuY3Rpb24="},
		Limits:    containerproxy.ActionLimits{ConcurrencyLimit: 1},
	}

	if err := p.Spawn("sbx-1", action.Exec, 256); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if err := p.Spawn("sbx-1", action.Exec, 256); err != containerproxy.ErrAlreadyTracked {
		t.Fatalf("second Spawn() error = %v, want ErrAlreadyTracked", err)
	}

	// A Run sent while the proxy is still Starting is not accepted; wait for
	// the prewarmed sandbox first.
	px, ok := p.Get("sbx-1")
	if !ok {
		t.Fatal("Get() found no proxy after Spawn")
	}
	startDeadline := time.Now().Add(time.Second)
	for time.Now().Before(startDeadline) && px.State() != containerproxy.Started {
		time.Sleep(time.Millisecond)
	}

	run := containerproxy.Run{
		Action: action,
		Message: containerproxy.ActivationMessage{
			TransactionID: containerproxy.NewTransactionID(),
			ActivationID:  containerproxy.NewActivationID(),
			Params:        map[string]any{"n": 1},
			Blocking:      true,
		},
	}
	if err := p.Dispatch("sbx-1", run); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && acker.count.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if acker.count.Load() != 1 {
		t.Fatalf("ack count = %d, want 1", acker.count.Load())
	}

	if err := p.Remove("sbx-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := p.Dispatch("sbx-1", run); err != containerproxy.ErrUnknownProxy {
		t.Fatalf("Dispatch() after Remove error = %v, want nothing tracked eventually", err)
	}

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		r := removed
		mu.Unlock()
		if r {
			break
		}
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if !removed {
		t.Fatalf("ContainerRemoved was never observed")
	}
	// The pool untracks the id before forwarding ContainerRemoved.
	if err := p.Dispatch("sbx-1", run); err != containerproxy.ErrUnknownProxy {
		t.Fatalf("Dispatch() after Remove error = %v, want nothing tracked eventually", err)
	}
	if ops.destroyCount.Load() != 1 {
		t.Fatalf("destroyCount = %d, want 1", ops.destroyCount.Load())
	}
}

func TestPool_UnknownProxy(t *testing.T) {
	t.Parallel()
	p, _, _ := newTestPool(t, func(string, containerproxy.Event) {})
	defer p.Shutdown(context.Background())

	if err := p.Dispatch("missing", containerproxy.Run{}); err != containerproxy.ErrUnknownProxy {
		t.Fatalf("Dispatch() error = %v, want ErrUnknownProxy", err)
	}
	if err := p.Remove("missing"); err != containerproxy.ErrUnknownProxy {
		t.Fatalf("Remove() error = %v, want ErrUnknownProxy", err)
	}
}

func TestPool_ShutdownDrainsTrackedProxies(t *testing.T) {
	t.Parallel()
	p, ops, _ := newTestPool(t, func(string, containerproxy.Event) {})

	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		if err := p.Spawn(id, containerproxy.ActionExec{Kind: "nodejs:20"}, 128); err != nil {
			t.Fatalf("Spawn(%s) error = %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if ops.destroyCount.Load() != 3 {
		t.Fatalf("destroyCount = %d, want 3", ops.destroyCount.Load())
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error = %v, want nil (idempotent)", err)
	}
}
