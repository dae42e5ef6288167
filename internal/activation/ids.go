package activation

import "github.com/google/uuid"

// TransactionID identifies one request end-to-end across the proxy, the
// acker and the store, replacing the source system's implicit thread-local
// transaction context: every call that needs it takes one explicitly.
type TransactionID string

// ActivationID identifies one completed or in-flight activation.
type ActivationID string

// NewTransactionID generates a fresh, random transaction id.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

// NewActivationID generates a fresh, random activation id.
func NewActivationID() ActivationID {
	return ActivationID(uuid.NewString())
}
