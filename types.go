package containerproxy

import (
	"github.com/ow-runtime/containerproxy/internal/activation"
	"github.com/ow-runtime/containerproxy/internal/proxy"
)

// State is the lifecycle state of a Proxy.
type State = proxy.State

// Lifecycle states, re-exported from internal/proxy.
const (
	Uninitialized = proxy.Uninitialized
	Starting      = proxy.Starting
	Started       = proxy.Started
	Running       = proxy.Running
	Ready         = proxy.Ready
	Pausing       = proxy.Pausing
	Paused        = proxy.Paused
	Removing      = proxy.Removing
)

// Data is the tagged payload attached to a proxy's current state. Exactly
// one concrete type is active at a time; callers type-switch on the value
// returned from Proxy.Data.
type Data = proxy.Data

// Concrete Data variants, re-exported from internal/proxy.
type (
	NoData          = proxy.NoData
	ResourcesData   = proxy.ResourcesData
	PreWarmedData   = proxy.PreWarmedData
	WarmingData     = proxy.WarmingData
	WarmingColdData = proxy.WarmingColdData
	WarmedData      = proxy.WarmedData
)

// Event is the tagged union of messages a proxy emits to its pool.
type Event = proxy.Event

// Concrete Event variants, re-exported from internal/proxy.
type (
	NeedWork         = proxy.NeedWork
	ContainerRemoved = proxy.ContainerRemoved
	RescheduleJob    = proxy.RescheduleJob
	Transition       = proxy.Transition
)

// Inbound messages a Pool can send to a Proxy.
type (
	Start  = proxy.Start
	Run    = proxy.Run
	Remove = proxy.Remove
)

// ActivationMessage carries the per-invocation fields a proxy needs.
type ActivationMessage = proxy.ActivationMessage

// Action description and limits.
type (
	ActionExec   = proxy.ActionExec
	ActionLimits = proxy.ActionLimits
	ActionMeta   = proxy.ActionMeta
)

// Proxy is the per-sandbox container proxy state machine.
type Proxy = proxy.Proxy

// Collaborator interfaces a Pool's Factory/Acker/Store/LogCollector plug
// into.
type (
	ContainerOps  = proxy.ContainerOps
	Factory       = proxy.Factory
	Acker         = proxy.Acker
	Store         = proxy.Store
	LogCollector  = proxy.LogCollector
	SharedCounter = proxy.SharedCounter
)

// Acknowledgment and log types shared across the ContainerOps/Acker/Store
// boundary.
type (
	Acknowledgment   = proxy.Acknowledgment
	ActivationLogs   = proxy.ActivationLogs
	PartialLogsError = proxy.PartialLogsError
)

// CounterMap is the default in-memory SharedCounter.
type CounterMap = proxy.CounterMap

// NewCounterMap returns an empty CounterMap.
func NewCounterMap() *CounterMap { return proxy.NewCounterMap() }

// Activation identifiers, responses and annotations, re-exported from
// internal/activation.
type (
	TransactionID = activation.TransactionID
	ActivationID  = activation.ActivationID
	Response      = activation.Response
	ResponseKind  = activation.ResponseKind
	Interval      = activation.Interval
	Annotations   = activation.Annotations
)

// Response kinds, re-exported from internal/activation.
const (
	Success          = activation.Success
	ApplicationError = activation.ApplicationError
	DeveloperError   = activation.DeveloperError
	WhiskError       = activation.WhiskError
)

// NewTransactionID generates a fresh, random transaction id.
func NewTransactionID() TransactionID { return activation.NewTransactionID() }

// NewActivationID generates a fresh, random activation id.
func NewActivationID() ActivationID { return activation.NewActivationID() }

// Partition splits activation args into environment and main-parameter
// fields, per the upper-case-key partitioning rule.
func Partition(args map[string]any, declaredEnv map[string]bool) (env, params map[string]any) {
	return activation.Partition(args, declaredEnv)
}
