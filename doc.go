// Package containerproxy manages the lifecycle of per-action sandbox
// containers for a serverless function execution layer.
//
// A [Pool] tracks one running [Proxy] per live sandbox, keyed by an opaque
// container id the caller assigns (e.g. a pod name or a local sandbox slot).
// Each Proxy runs its own single-owner event loop internally, so callers
// never hold a lock across a Spawn/Dispatch/Remove call: state changes are
// observed asynchronously through the Notify callback supplied to [NewPool].
//
// # Basic usage
//
//	pool := containerproxy.NewPool(
//	    containerproxy.WithFactory(dockerFactory),
//	    containerproxy.WithAcker(controllerAcker),
//	    containerproxy.WithStore(activationStore),
//	    containerproxy.WithLogCollector(logCollector),
//	    containerproxy.WithNotify(func(id string, e containerproxy.Event) {
//	        // route NeedWork/ContainerRemoved/RescheduleJob back to the scheduler
//	    }),
//	)
//	defer pool.Shutdown(context.Background())
//
//	pool.Spawn("sandbox-1", containerproxy.ActionExec{Kind: "nodejs:20", Code: code}, 256)
//	// Once Notify has reported NeedWork for "sandbox-1" (a Run that
//	// arrives while the proxy is still Starting is dropped):
//	pool.Dispatch("sandbox-1", containerproxy.Run{Action: action, Message: msg})
//
// # Shutdown
//
// Shutdown destroys every tracked sandbox concurrently, bounded by
// [DefaultShutdownTimeout] (override with [WithShutdownTimeout]), and waits
// for each Proxy's event loop to fully drain before returning.
//
// # Data cache
//
// [ContainerDataCache] provides a multi-reader/single-writer cache for data
// keyed independently of any one proxy — e.g. a backing store's
// activation records or action metadata shared across sandboxes — with
// read coalescing and invalidate-while-loading semantics.
package containerproxy
