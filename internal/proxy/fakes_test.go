package proxy

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ow-runtime/containerproxy/internal/activation"
	"github.com/ow-runtime/containerproxy/internal/clock"
)

// fakeOps is a ContainerOps test double recording every call it receives.
type fakeOps struct {
	initCount    atomic.Int32
	runCount     atomic.Int32
	suspendCount atomic.Int32
	resumeCount  atomic.Int32
	destroyCount atomic.Int32

	initErr    error
	runErr     error
	suspendErr error
	resumeErr  error

	// runFn overrides the default success response per call, if set.
	runFn func(n int32) activation.Response
}

func (f *fakeOps) Initialize(ctx context.Context, payload json.RawMessage, timeout time.Duration, concurrency int) (activation.Interval, error) {
	f.initCount.Add(1)
	start := time.Now()
	return activation.Interval{Start: start, End: start.Add(time.Millisecond)}, f.initErr
}

func (f *fakeOps) Run(ctx context.Context, params, env json.RawMessage, timeout time.Duration, concurrency int) (activation.Interval, activation.Response, error) {
	n := f.runCount.Add(1)
	start := time.Now()
	iv := activation.Interval{Start: start, End: start.Add(time.Millisecond)}
	if f.runErr != nil {
		return iv, activation.Response{}, f.runErr
	}
	if f.runFn != nil {
		return iv, f.runFn(n), nil
	}
	return iv, activation.Response{Kind: activation.Success, Result: map[string]any{"ok": true}}, nil
}

func (f *fakeOps) Logs(ctx context.Context, limit int64, waitForSentinel bool) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeOps) Suspend(ctx context.Context) error {
	f.suspendCount.Add(1)
	return f.suspendErr
}

func (f *fakeOps) Resume(ctx context.Context) error {
	f.resumeCount.Add(1)
	return f.resumeErr
}

func (f *fakeOps) Destroy(ctx context.Context) error {
	f.destroyCount.Add(1)
	return nil
}

// fakeFactory hands out a single shared fakeOps, or fails if createErr is set.
type fakeFactory struct {
	ops       *fakeOps
	createErr error
	calls     atomic.Int32

	// gate, if non-nil, blocks Factory until closed — lets tests hold a
	// creation call in flight to exercise races against it.
	gate chan struct{}
}

func (f *fakeFactory) Factory(ctx context.Context, exec ActionExec, memoryMB int) (ContainerOps, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.ops, nil
}

// fakeAcker records every Ack call.
type fakeAcker struct {
	mu   sync.Mutex
	acks []Acknowledgment
}

func (f *fakeAcker) Ack(ctx context.Context, txn activation.TransactionID, act activation.ActivationID, blocking bool, controllerID, userID string, ack Acknowledgment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ack)
	return nil
}

func (f *fakeAcker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acks)
}

func (f *fakeAcker) nthHasInitTime(n int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n >= len(f.acks) {
		return false
	}
	return f.acks[n].Annotations.InitTime != nil
}

func (f *fakeAcker) kinds() []activation.ResponseKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]activation.ResponseKind, len(f.acks))
	for i, a := range f.acks {
		out[i] = a.Response.Kind
	}
	return out
}

// fakeStore records every Store call.
type fakeStore struct {
	count atomic.Int32
}

func (f *fakeStore) Store(ctx context.Context, txn activation.TransactionID, act activation.ActivationID, userContext any) error {
	f.count.Add(1)
	return nil
}

// fakeLogs always reports complete, empty logs.
type fakeLogs struct{}

func (fakeLogs) Collect(ctx context.Context, txn activation.TransactionID, user string, act activation.ActivationID, ops ContainerOps, action ActionMeta) (ActivationLogs, error) {
	return ActivationLogs{Complete: true}, nil
}

// eventSink collects every Event a proxy emits, safe for concurrent use.
type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) notify(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *eventSink) countContainerRemoved() int {
	n := 0
	for _, e := range s.snapshot() {
		if _, ok := e.(ContainerRemoved); ok {
			n++
		}
	}
	return n
}

func (s *eventSink) rescheduled() []RescheduleJob {
	var out []RescheduleJob
	for _, e := range s.snapshot() {
		if r, ok := e.(RescheduleJob); ok {
			out = append(out, r)
		}
	}
	return out
}

// testHarness bundles a Proxy with its fakes and a fake clock/timer pair.
type testHarness struct {
	proxy   *Proxy
	ops     *fakeOps
	factory *fakeFactory
	acker   *fakeAcker
	store   *fakeStore
	sink    *eventSink
	clock   *clock.FakeClock
	timers  *clock.FakeTimerSource
}

func newTestHarness(id string) *testHarness {
	ops := &fakeOps{}
	factory := &fakeFactory{ops: ops}
	acker := &fakeAcker{}
	store := &fakeStore{}
	sink := &eventSink{}
	fc := clock.NewFakeClock(time.Unix(1000, 0))
	ft := clock.NewFakeTimerSource(fc)

	cfg := DefaultProxyConfig()
	cfg.Clock = fc
	cfg.Timers = ft
	cfg.Factory = factory.Factory
	cfg.Acker = acker
	cfg.Store = store
	cfg.Logs = fakeLogs{}
	cfg.Notify = sink.notify
	cfg.PauseGrace = 10 * time.Second

	p := NewProxy(id, cfg)

	return &testHarness{
		proxy:   p,
		ops:     ops,
		factory: factory,
		acker:   acker,
		store:   store,
		sink:    sink,
		clock:   fc,
		timers:  ft,
	}
}

func testAction(namespace string, concurrency int) ActionMeta {
	return ActionMeta{
		Name:      "echo",
		Namespace: namespace,
		Path:      namespace + "/echo",
		Kind:      "nodejs:20",
		Exec:      ActionExec{Kind: "nodejs:20", Code: "ZnVuY3Rpb24=", Binary: false},
		Limits: ActionLimits{
			TimeoutMS:        60000,
			MemoryMB:         256,
			ConcurrencyLimit: concurrency,
			LogLimitBytes:    10 << 20,
		},
	}
}

func testRun(action ActionMeta, arrival time.Time) Run {
	return Run{
		Action: action,
		Message: ActivationMessage{
			TransactionID: activation.NewTransactionID(),
			ActivationID:  activation.NewActivationID(),
			Params:        map[string]any{"n": 1},
			ControllerID:  "controller0",
			UserID:        "user0",
			Blocking:      true,
			ArrivalTime:   arrival.UnixNano(),
		},
	}
}
