// Package bridge routes messages between the embedded Monaco editor's
// JavaScript context and host code.
//
// A Bridge is attached to a webview.Controller and fed raw channel messages
// through HandleMessage. It normalizes each message to a JSON object,
// classifies it by its "event" discriminator, updates readiness and the live
// statistics observable, and fans every decoded message out to registered
// raw listeners in registration order.
//
// # Lifecycle
//
// Readiness is a one-shot future: it transitions from pending to ready on
// the first onEditorReady event, or to failed if the bridge is disposed
// while still pending. Neither transition can be undone or repeated.
//
//	b := bridge.New(logger)
//	b.Attach(ctrl)
//	handle := b.AddRawListener(func(msg bridge.Message) { ... })
//	if err := b.AwaitReady(ctx); err != nil { ... }
//	defer b.Dispose()
//
// Disposal is idempotent. After Dispose, HandleMessage and listener
// registration become no-ops and Attach returns ErrBridgeDisposed.
//
// # Fault isolation
//
// Malformed input never reaches the caller: unparseable messages are logged
// and dropped, a stats payload that fails to decode leaves the previous
// snapshot in place, and a listener that panics is recovered and logged
// without affecting the listeners after it.
package bridge
