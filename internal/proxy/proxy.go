package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ow-runtime/containerproxy/internal/activation"
	"github.com/ow-runtime/containerproxy/internal/clock"
)

// stashedRun is a Run message queued behind the proxy's concurrency limit
// or awaiting a sandbox bind, plus the wall-clock arrival time used for the
// waitTime annotation.
type stashedRun struct {
	run     Run
	arrival time.Time
}

// dataBox lets the zero-size, interface-typed Data live behind an
// atomic.Pointer, mirroring the teacher's atomic.Pointer[rest.Config]
// caching idiom in internal/core/instance.go.
type dataBox struct {
	d Data
}

// Internal completion events. Each is posted to the proxy's single inbox
// channel by a goroutine launched from the event loop, and is handled by
// the loop exactly like an external message — this is what keeps state
// transitions single-threaded despite ContainerOps calls running
// concurrently with the loop.
type (
	createResult struct {
		ops ContainerOps
		err error
	}
	runOutcome struct {
		run       stashedRun
		ops       ContainerOps
		namespace string
		action    ActionMeta
		destroy   bool
	}
	resumeFailed struct {
		run stashedRun
	}
	suspendResult struct {
		err error
	}
	destroyResult struct{}
	pauseTimeout  struct{}
)

// Proxy is the per-sandbox container proxy state machine (spec.md §4.2).
// Exactly one goroutine (the event loop started by NewProxy) ever mutates
// state, data, ops, namespace, action, or stash — every other field used
// from outside the loop is atomic. This single-owner design is why no
// mutex appears anywhere in the transition logic.
type Proxy struct {
	cfg ProxyConfig
	id  string

	inbox chan any
	done  chan struct{}

	state       atomic.Uint32
	data        atomic.Pointer[dataBox]
	activeCount atomic.Int32

	removeRequested atomic.Bool
	destroyOnce     sync.Once
	removedOnce     sync.Once

	// Loop-owned: touched only inside the event loop goroutine.
	ops          ContainerOps
	namespace    string
	action       ActionMeta
	pendingExec  ActionExec
	pendingMemMB int
	stash        []stashedRun
	pauseTimer   clock.Timer
	suspendCount atomic.Int32
	resumeCount  atomic.Int32
	destroyCount int

	log *slog.Logger
}

// NewProxy creates a Proxy and starts its event loop goroutine. Panics if
// cfg fails Validate, matching the teacher's regexp.MustCompile-style
// construction-time validation.
func NewProxy(id string, cfg ProxyConfig) *Proxy {
	if id == "" {
		panic("containerproxy: proxy id must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("containerproxy: invalid proxy config: %v", err))
	}
	p := &Proxy{
		cfg:   cfg,
		id:    id,
		inbox: make(chan any, 64),
		done:  make(chan struct{}),
		log:   Logger().With("proxy_id", id),
	}
	p.data.Store(&dataBox{d: NoData{}})
	go p.loop()
	return p
}

// ID returns the proxy's identifier.
func (p *Proxy) ID() string { return p.id }

// State returns the proxy's current state. Safe to call from any goroutine.
func (p *Proxy) State() State { return State(p.state.Load()) }

// Data returns a snapshot of the proxy's current tagged data. Safe to call
// from any goroutine.
func (p *Proxy) Data() Data {
	if b := p.data.Load(); b != nil {
		return b.d
	}
	return NoData{}
}

// ActiveCount returns the number of in-flight activations.
func (p *Proxy) ActiveCount() int32 { return p.activeCount.Load() }

// SuspendCount returns how many times this proxy's sandbox has been
// suspended.
func (p *Proxy) SuspendCount() int32 { return p.suspendCount.Load() }

// ResumeCount returns how many times this proxy's sandbox has been resumed.
func (p *Proxy) ResumeCount() int32 { return p.resumeCount.Load() }

// DestroyCount returns how many times this proxy's sandbox has been
// destroyed (always 0 or 1, per spec.md §8's exactly-one-destroy property).
func (p *Proxy) DestroyCount() int { return p.destroyCount }

// Done returns a channel closed once the proxy has fully terminated: its
// sandbox (if any) destroyed and ContainerRemoved emitted.
func (p *Proxy) Done() <-chan struct{} { return p.done }

// Send delivers an inbound message (Start, Run, or Remove) to the proxy's
// event loop. Returns ErrAlreadyRemoving if the proxy has already finished
// removing itself.
func (p *Proxy) Send(msg any) error {
	select {
	case <-p.done:
		return ErrAlreadyRemoving
	default:
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-p.done:
		return ErrAlreadyRemoving
	}
}

// post enqueues an internal completion event. Unlike Send, it never rejects
// — completions of work the loop itself launched must always be delivered,
// even after the proxy starts removing, so destroyResult can still close
// the loop.
func (p *Proxy) post(msg any) {
	select {
	case p.inbox <- msg:
	case <-p.done:
	}
}

func (p *Proxy) loop() {
	for msg := range p.inbox {
		p.handle(msg)
		if p.state.Load() == uint32(Removing) && p.destroyCount > 0 {
			close(p.done)
			return
		}
	}
}

func (p *Proxy) handle(msg any) {
	switch m := msg.(type) {
	case Start:
		p.handleStart(m)
	case Run:
		p.handleRun(m, time.Now())
	case Remove:
		p.handleRemove()
	case createResult:
		p.handleCreateResult(m)
	case runOutcome:
		p.handleRunOutcome(m)
	case resumeFailed:
		p.handleResumeFailed(m)
	case suspendResult:
		p.handleSuspendResult(m)
	case destroyResult:
		p.handleDestroyResult()
	case pauseTimeout:
		p.handlePauseTimeout()
	default:
		p.log.Error("unrecognized event", "type", fmt.Sprintf("%T", msg))
	}
}

func (p *Proxy) transitionTo(to State) {
	from := State(p.state.Load())
	if from == to {
		return
	}
	p.state.Store(uint32(to))
	p.emit(Transition{From: from, To: to})
}

func (p *Proxy) setData(d Data) {
	p.data.Store(&dataBox{d: d})
}

func (p *Proxy) emit(e Event) {
	p.cfg.Notify(e)
}

func (p *Proxy) emitContainerRemoved() {
	p.removedOnce.Do(func() {
		p.emit(ContainerRemoved{})
	})
}

// --- Start / prewarm ---

func (p *Proxy) handleStart(m Start) {
	if State(p.state.Load()) != Uninitialized {
		p.log.Warn("Start rejected: not in Uninitialized state", "state", p.State())
		return
	}
	p.pendingExec = m.Exec
	p.pendingMemMB = m.MemoryMB
	p.setData(ResourcesData{MemoryMB: m.MemoryMB})
	p.transitionTo(Starting)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.InitTimeout)
		defer cancel()
		ops, err := p.cfg.Factory(ctx, m.Exec, m.MemoryMB)
		p.post(createResult{ops: ops, err: err})
	}()
}

func (p *Proxy) handleCreateResult(m createResult) {
	if State(p.state.Load()) != Starting {
		return
	}
	if m.err != nil {
		p.log.Warn("sandbox creation failed during prewarm", "error", m.err)
		p.triggerDestroy()
		return
	}
	p.ops = m.ops
	if p.removeRequested.Load() {
		// Remove arrived while the sandbox was still being created
		// (handleRemove deferred it since there was no real ops yet to
		// destroy); now that creation succeeded, destroy the real sandbox
		// instead of losing track of it.
		p.triggerDestroy()
		return
	}
	p.setData(PreWarmedData{Ops: m.ops, Kind: p.pendingExec.Kind, MemoryMB: p.pendingMemMB})
	p.transitionTo(Started)
	p.emit(NeedWork{Data: p.Data()})
}

// --- Run ---

func (p *Proxy) handleRun(m Run, now time.Time) {
	st := State(p.state.Load())
	run := stashedRun{run: m, arrival: now}

	switch st {
	case Uninitialized:
		p.action = m.Action
		p.namespace = m.Action.Namespace
		n := p.activeCount.Add(1)
		p.setData(WarmingColdData{Namespace: p.namespace, Action: p.action, LastUsed: p.cfg.Clock.Now().UnixNano(), ActiveCount: int(n)})
		p.transitionTo(Running)
		go p.execute(run, nil, true)

	case Started:
		p.action = m.Action
		p.namespace = m.Action.Namespace
		n := p.activeCount.Add(1)
		p.setData(WarmingData{Ops: p.ops, Namespace: p.namespace, Action: p.action, LastUsed: p.cfg.Clock.Now().UnixNano(), ActiveCount: int(n)})
		p.transitionTo(Running)
		go p.execute(run, p.ops, true)

	case Ready:
		p.action = m.Action
		p.activeCount.Add(1)
		p.transitionTo(Running)
		go p.execute(run, p.ops, false)

	case Running:
		if p.ops != nil && p.action.Limits.ConcurrencyLimit > 1 &&
			int(p.activeCount.Load()) < p.action.Limits.ConcurrencyLimit {
			p.activeCount.Add(1)
			go p.execute(run, p.ops, false)
			return
		}
		p.stash = append(p.stash, run)

	case Paused:
		if p.removeRequested.Load() {
			p.emit(RescheduleJob{Run: m})
			return
		}
		if p.pauseTimer != nil {
			p.pauseTimer.Stop()
			p.pauseTimer = nil
		}
		p.activeCount.Add(1)
		p.transitionTo(Running)
		go p.resumeThenExecute(run)

	case Removing:
		// Destroy already scheduled (self-initiated or otherwise); this Run
		// cannot be honored by this proxy. Covers spec.md §4.2's
		// "late Run vs self-initiated removal" race: the StateTimeout or
		// Remove event that moved the proxy into Removing is always
		// processed before this Run, since both travel through the same
		// single inbox channel.
		p.emit(RescheduleJob{Run: m})

	default:
		p.log.Warn("Run rejected: no valid transition", "state", st)
	}
}

// execute runs the initialize(optional)/run/logs/ack/store pipeline for one
// activation on a separate goroutine, reporting its outcome back to the
// loop as a single runOutcome event. Folding the whole pipeline into one
// task (rather than one event per ContainerOps call) is a deliberate
// simplification: every transition and ordering guarantee the proxy must
// expose (Transition before NeedWork, exactly-one-ack, exactly-one-destroy)
// is still driven entirely by the loop from this single completion.
func (p *Proxy) execute(run stashedRun, ops ContainerOps, cold bool) {
	ctx := context.Background()
	action := run.run.Action
	msg := run.run.Message

	if ops == nil {
		cctx, cancel := context.WithTimeout(ctx, p.cfg.InitTimeout)
		created, err := p.cfg.Factory(cctx, action.Exec, action.Limits.MemoryMB)
		cancel()
		if err != nil {
			p.ackCreationFailed(ctx, run)
			p.post(runOutcome{run: run, destroy: true})
			return
		}
		ops = created
	}

	var initIv activation.Interval
	if cold {
		initPayload, _ := json.Marshal(action.Exec)
		ictx, cancel := context.WithTimeout(ctx, p.cfg.InitTimeout)
		iv, err := ops.Initialize(ictx, initPayload, p.cfg.InitTimeout, action.Limits.ConcurrencyLimit)
		cancel()
		if err != nil {
			p.ackInitFailed(ctx, run)
			p.post(runOutcome{run: run, ops: ops, namespace: action.Namespace, action: action, destroy: true})
			return
		}
		initIv = iv
	}

	env, params := activation.Partition(msg.Params, nil)
	envJSON, _ := json.Marshal(env)
	paramsJSON, _ := json.Marshal(params)

	rctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	runIv, resp, rerr := ops.Run(rctx, paramsJSON, envJSON, p.cfg.RunTimeout, action.Limits.ConcurrencyLimit)
	cancel()
	if rerr != nil {
		p.ackRunFailed(ctx, run, rerr)
		p.post(runOutcome{run: run, ops: ops, namespace: action.Namespace, action: action, destroy: true})
		return
	}

	limitsJSON, err := json.Marshal(action.Limits)
	limitsStr := string(limitsJSON)
	if err != nil {
		limitsStr = fmt.Sprintf("%+v", action.Limits)
	}

	var ann activation.Annotations
	if cold {
		ann = activation.ColdAnnotations(time.Unix(0, msg.ArrivalTime), initIv, runIv, limitsStr, action.Path, action.Kind)
	} else {
		ann = activation.WarmAnnotations(time.Unix(0, msg.ArrivalTime), runIv, limitsStr, action.Path, action.Kind)
	}

	destroy := resp.Kind != activation.Success && resp.Kind != activation.ApplicationError

	lctx, lcancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	_, lerr := p.cfg.Logs.Collect(lctx, msg.TransactionID, msg.UserID, msg.ActivationID, ops, action)
	lcancel()
	if lerr != nil {
		var partial *PartialLogsError
		if errors.As(lerr, &partial) {
			p.persistLogs(ctx, run, partial.Logs)
		}
		destroy = true
	}

	actx, acancel := context.WithTimeout(ctx, p.cfg.AckTimeout)
	if err := p.cfg.Acker.Ack(actx, msg.TransactionID, msg.ActivationID, msg.Blocking, msg.ControllerID, msg.UserID,
		Acknowledgment{Response: resp, Annotations: ann}); err != nil {
		p.log.Warn("ack failed", "activation_id", msg.ActivationID, "error", err)
	}
	acancel()

	if action.Limits.LogLimitBytes > 0 {
		sctx, scancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
		if err := p.cfg.Store.Store(sctx, msg.TransactionID, msg.ActivationID, nil); err != nil {
			p.log.Warn("store failed", "activation_id", msg.ActivationID, "error", err)
		}
		scancel()
	}

	p.post(runOutcome{run: run, ops: ops, namespace: action.Namespace, action: action, destroy: destroy})
}

// resumeThenExecute resumes a paused sandbox's connection and, on success,
// continues directly into the warm-run pipeline. On resume failure it
// reports resumeFailed so the loop can reschedule the pending Run and
// destroy the sandbox (spec.md §4.2 "Resume failure").
func (p *Proxy) resumeThenExecute(run stashedRun) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DestroyTimeout)
	err := p.ops.Resume(ctx)
	cancel()
	if err != nil {
		p.log.Warn("resume failed", "error", err)
		p.post(resumeFailed{run: run})
		return
	}
	p.resumeCount.Add(1)
	p.execute(run, p.ops, false)
}

func (p *Proxy) ackCreationFailed(ctx context.Context, run stashedRun) {
	msg := run.run.Message
	actx, cancel := context.WithTimeout(ctx, p.cfg.AckTimeout)
	defer cancel()
	resp := activation.Response{Kind: activation.WhiskError, Message: "no sandbox could be obtained"}
	if err := p.cfg.Acker.Ack(actx, msg.TransactionID, msg.ActivationID, msg.Blocking, msg.ControllerID, msg.UserID,
		Acknowledgment{Response: resp}); err != nil {
		p.log.Warn("ack failed for creation failure", "activation_id", msg.ActivationID, "error", err)
	}
}

func (p *Proxy) ackInitFailed(ctx context.Context, run stashedRun) {
	msg := run.run.Message
	actx, cancel := context.WithTimeout(ctx, p.cfg.AckTimeout)
	defer cancel()
	resp := activation.Response{Kind: activation.DeveloperError, Message: "action failed to initialize"}
	if err := p.cfg.Acker.Ack(actx, msg.TransactionID, msg.ActivationID, msg.Blocking, msg.ControllerID, msg.UserID,
		Acknowledgment{Response: resp}); err != nil {
		p.log.Warn("ack failed for init failure", "activation_id", msg.ActivationID, "error", err)
	}
}

func (p *Proxy) ackRunFailed(ctx context.Context, run stashedRun, cause error) {
	msg := run.run.Message
	actx, cancel := context.WithTimeout(ctx, p.cfg.AckTimeout)
	defer cancel()
	resp := activation.Response{Kind: activation.WhiskError, Message: cause.Error()}
	if err := p.cfg.Acker.Ack(actx, msg.TransactionID, msg.ActivationID, msg.Blocking, msg.ControllerID, msg.UserID,
		Acknowledgment{Response: resp}); err != nil {
		p.log.Warn("ack failed for run failure", "activation_id", msg.ActivationID, "error", err)
	}
}

func (p *Proxy) persistLogs(ctx context.Context, run stashedRun, logs ActivationLogs) {
	msg := run.run.Message
	sctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()
	if err := p.cfg.Store.Store(sctx, msg.TransactionID, msg.ActivationID, logs); err != nil {
		p.log.Warn("failed to persist partial logs", "activation_id", msg.ActivationID, "error", err)
	}
}

func (p *Proxy) handleResumeFailed(m resumeFailed) {
	p.activeCount.Add(-1)
	p.emit(RescheduleJob{Run: m.run.run})
	p.triggerDestroy()
}

func (p *Proxy) handleRunOutcome(m runOutcome) {
	if m.ops != nil {
		p.ops = m.ops
		p.namespace = m.namespace
		p.action = m.action
	}

	n := p.activeCount.Add(-1)

	if m.destroy {
		p.triggerDestroy()
		return
	}

	limit := p.action.Limits.ConcurrencyLimit
	if limit < 1 {
		limit = 1
	}
	for len(p.stash) > 0 && int(p.activeCount.Load()) < limit {
		next := p.stash[0]
		p.stash = p.stash[1:]
		n = p.activeCount.Add(1)
		go p.execute(next, p.ops, false)
	}

	if n > 0 || len(p.stash) > 0 {
		return
	}

	if p.removeRequested.Load() {
		p.triggerDestroy()
		return
	}

	p.setData(WarmedData{Ops: p.ops, Namespace: p.namespace, Action: p.action, ActiveCount: 0})
	p.transitionTo(Ready)
	p.emit(NeedWork{Data: p.Data()})
	p.startPauseTimer()
}

// --- Pause / resume lifecycle ---

func (p *Proxy) startPauseTimer() {
	p.pauseTimer = p.cfg.Timers.AfterFunc(p.cfg.PauseGrace, func() {
		p.post(pauseTimeout{})
	})
}

func (p *Proxy) handlePauseTimeout() {
	switch State(p.state.Load()) {
	case Ready:
		p.transitionTo(Pausing)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DestroyTimeout)
			err := p.ops.Suspend(ctx)
			cancel()
			p.post(suspendResult{err: err})
		}()
	case Paused:
		p.triggerDestroy()
	default:
		// Stale timer firing after a state change already invalidated it
		// (e.g. a Run arrived and stopped the timer concurrently with its
		// own firing); ignore.
	}
}

func (p *Proxy) handleSuspendResult(m suspendResult) {
	if m.err != nil {
		p.log.Warn("suspend failed", "error", m.err)
		// Emit ContainerRemoved immediately rather than waiting for destroy
		// to complete (spec.md §4.2 "Suspend failure"), then still run the
		// normal exactly-once destroy sequence for resource reclamation.
		p.transitionTo(Removing)
		p.emitContainerRemoved()
		p.destroyOnce.Do(func() {
			ops := p.ops
			go func() {
				if ops != nil {
					ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DestroyTimeout)
					if err := ops.Destroy(ctx); err != nil {
						p.log.Warn("destroy failed", "error", err)
					}
					cancel()
				}
				p.post(destroyResult{})
			}()
		})
		return
	}
	p.suspendCount.Add(1)
	p.transitionTo(Paused)
	p.startPauseTimer()
}

// --- Removal ---

func (p *Proxy) handleRemove() {
	if !p.removeRequested.CompareAndSwap(false, true) {
		return // already requested; idempotent
	}
	switch State(p.state.Load()) {
	case Running:
		return // deferred: handled when activeCount drains to zero
	case Starting:
		// Deferred: no real sandbox is bound to p.ops yet. handleCreateResult
		// checks removeRequested once the in-flight factory call completes
		// and destroys whatever it produced, instead of tearing the loop
		// down here and losing track of a sandbox the factory still creates.
		return
	}
	if p.pauseTimer != nil {
		p.pauseTimer.Stop()
		p.pauseTimer = nil
	}
	p.triggerDestroy()
}

// triggerDestroy ensures exactly one Destroy call is made for this proxy's
// sandbox (spec.md §8 testable property), guarded by destroyOnce. A proxy
// with no sandbox at all (creation failed before a Run ever bound one)
// skips straight to ContainerRemoved.
func (p *Proxy) triggerDestroy() {
	p.transitionTo(Removing)
	p.destroyOnce.Do(func() {
		ops := p.ops
		go func() {
			if ops != nil {
				ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DestroyTimeout)
				if err := ops.Destroy(ctx); err != nil {
					p.log.Warn("destroy failed", "error", err)
				}
				cancel()
			}
			p.post(destroyResult{})
		}()
	})
}

func (p *Proxy) handleDestroyResult() {
	p.destroyCount++
	p.transitionTo(Removing)
	p.emitContainerRemoved()

	for _, r := range p.stash {
		p.emit(RescheduleJob{Run: r.run})
	}
	p.stash = nil
}
