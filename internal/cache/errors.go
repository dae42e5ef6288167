package cache

import "github.com/ow-runtime/containerproxy/internal/sentinel"

// ErrStaleRead is a defensive error for an internal invariant violation: an
// entry's state was observed, at read- or write-completion time, to be
// something other than one of the states a completing operation can legally
// find (InProgress for itself, or InvalidateWhenDone). It should never occur
// in normal operation — the documented read-vs-invalidate race (see package
// doc and DESIGN.md) is resolved without it, by design, per the chosen
// semantics "caller sees the loaded value, a subsequent lookup re-reads."
// No Cache operation returns ErrStaleRead: when a completing read observes
// such a state, it logs the violation at Error level and evicts the entry,
// and the caller still receives the loaded value.
const ErrStaleRead = sentinel.Error("cache: stale read, entry state changed unexpectedly")

// ErrConcurrentOp names the condition of an operation finding a conflicting
// operation holding the entry in a state it cannot safely share. No Cache
// operation returns it: such conflicts are resolved by reading around the
// cache or by marking the entry InvalidateWhenDone.
const ErrConcurrentOp = sentinel.Error("cache: conflicting operation in progress")
