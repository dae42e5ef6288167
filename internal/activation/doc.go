// Package activation holds the value types exchanged at the container-proxy
// boundary: timing intervals, activation responses and their annotations,
// transaction/activation identifiers, and the environment/parameter
// partitioning rule applied to an action's run arguments.
//
// These are plain value types with no behavior beyond small, pure helper
// methods — they carry data between the proxy, [ContainerOps], the acker and
// the store, and are otherwise opaque to this package.
package activation
