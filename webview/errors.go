package webview

import (
	"errors"
	"fmt"
)

// Controller errors.
var (
	// ErrClosed indicates the controller has been disposed.
	ErrClosed = errors.New("web view controller is closed")

	// ErrNotInitialized indicates an operation that requires Initialize first.
	ErrNotInitialized = errors.New("web view controller is not initialized")

	// ErrScriptingDisabled indicates script execution before EnableJavaScript.
	ErrScriptingDisabled = errors.New("javascript execution is not enabled")

	// ErrChannelExists indicates a channel name is already registered.
	ErrChannelExists = errors.New("javascript channel already registered")

	// ErrNoSuchChannel indicates removal of an unregistered channel.
	ErrNoSuchChannel = errors.New("javascript channel not registered")
)

// EngineError wraps a failure reported by the underlying web-view engine.
type EngineError struct {
	Op  string // Operation name (e.g., "run javascript", "initialize")
	Err error  // Underlying engine failure
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("webview engine: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

func engineErr(op string, err error) error {
	return &EngineError{Op: op, Err: err}
}
