package bridge

import "errors"

// Bridge errors.
var (
	// ErrBridgeDisposed is returned when operating on a disposed bridge,
	// and is the failure a pending readiness future completes with when the
	// bridge is disposed before the editor reports ready.
	ErrBridgeDisposed = errors.New("bridge already disposed")
)
