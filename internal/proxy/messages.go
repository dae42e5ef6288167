package proxy

import "github.com/ow-runtime/containerproxy/internal/activation"

// Start requests that the proxy prewarm a sandbox for the given executable.
type Start struct {
	Exec     ActionExec
	MemoryMB int
}

// Run requests one invocation of action with the given activation message.
type Run struct {
	Action  ActionMeta
	Message ActivationMessage
}

// Remove requests that the proxy destroy its sandbox and terminate. If the
// proxy has in-flight activations, removal is deferred until they complete
// (spec.md §4.2 "deferred removal").
type Remove struct{}

// ActivationMessage carries the per-invocation fields the proxy needs:
// identifiers for telemetry/acking, the raw parameters, and the wall-clock
// arrival time used to compute waitTime (spec.md §4.2).
type ActivationMessage struct {
	TransactionID activation.TransactionID
	ActivationID  activation.ActivationID
	Params        map[string]any
	ControllerID  string
	UserID        string
	Blocking      bool
	ProvideAPIKey bool
	ArrivalTime   int64 // unix nanoseconds, from the sender's Clock
}

// Event is the tagged union of messages the proxy emits to its parent pool
// (spec.md §6 "Proxy-to-pool messages").
type Event interface {
	isEvent()
}

// NeedWork is emitted when the proxy becomes available to accept work,
// always after the transition into the state Data describes (spec.md §5
// ordering rule).
type NeedWork struct {
	Data Data
}

// ContainerRemoved is emitted exactly once per sandbox (spec.md §8 testable
// property): when its destroy call completes, or, after a failed suspend, as
// soon as the failure is seen and before destroy runs.
type ContainerRemoved struct{}

// RescheduleJob returns a Run to the parent because this proxy cannot honor
// it (e.g. a failed resume, or a late Run racing the proxy's own removal).
type RescheduleJob struct {
	Run Run
}

// Transition is emitted on every accepted state change.
type Transition struct {
	From, To State
}

func (NeedWork) isEvent()         {}
func (ContainerRemoved) isEvent() {}
func (RescheduleJob) isEvent()    {}
func (Transition) isEvent()       {}
