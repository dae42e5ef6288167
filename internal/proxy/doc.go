// Package proxy implements the container proxy: a single-owner state
// machine that drives one sandbox from creation through prewarming,
// initialization, one or more runs (optionally concurrent), idle pause and
// resume, and destruction.
//
// A [Proxy] runs its own event loop goroutine, consuming inbound messages
// ([Start], [Run], [Remove]) and internal completion events from a single
// channel, exactly as a single-owner actor: at most one event is handled at
// a time, so state transitions never race against each other. ContainerOps
// calls and the Acker/Store calls they trigger run on separate goroutines
// and report back to the loop as completion events, so the loop itself
// never blocks on sandbox I/O.
package proxy
