package reconcile

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("game not found on ledger")

// TransportError wraps a ledger reachability failure. Transport errors
// are retried with backoff up to the configured attempt bound.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "ledger transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError reports that the ledger refused an intent, e.g. on
// stale state. Rejections are not retried.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("ledger rejected intent: %s", e.Reason)
}
