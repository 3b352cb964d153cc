package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/uncrr/monacoview/logging"
	"github.com/uncrr/monacoview/webview"
)

// Message is a decoded message from the editor's JavaScript context. It
// always carries the "event" discriminator key.
type Message = map[string]any

// RawListener receives every decoded message regardless of routing outcome.
type RawListener func(msg Message)

// ListenerHandle identifies a raw-listener registration for removal.
type ListenerHandle string

// Event discriminator values recognized by the bridge.
const (
	EventReady             = "onEditorReady"
	EventStats             = "stats"
	EventError             = "error"
	EventContentChanged    = "contentChanged"
	EventSelectionChanged  = "selectionChanged"
	EventFocus             = "focus"
	EventBlur              = "blur"
	EventCompletionRequest = "completionRequest"
)

const (
	eventKey = "event"

	// logPrefix marks a raw string as a diagnostic line, not an event.
	logPrefix = "log:"

	// unknownEditorError is logged for error events without a message field.
	unknownEditorError = "unknown editor error"
)

// DeliveryStats is a snapshot of the bridge's message counters.
type DeliveryStats struct {
	Handled        uint64 // messages decoded and routed
	Dropped        uint64 // messages discarded after disposal
	LogLines       uint64 // log-prefixed diagnostics
	ParseFailures  uint64 // undecodable or discriminator-less messages
	StatsFailures  uint64 // stats payloads that failed to decode
	Unhandled      uint64 // recognized JSON with an unknown discriminator
	ListenerPanics uint64 // raw listeners recovered from a panic
}

type listenerReg struct {
	handle ListenerHandle
	fn     RawListener
}

// Bridge decodes, routes, and fans out messages arriving from the embedded
// editor. One Bridge exists per editor instance.
type Bridge struct {
	log *logging.Logger

	ready *readiness
	stats *StatsNotifier

	disposed atomic.Bool

	mu        sync.Mutex
	listeners []listenerReg      // registration order = notification order
	ctrl      webview.Controller // non-owning; lifecycle managed by creator

	// Delivery counters.
	handled        atomic.Uint64
	dropped        atomic.Uint64
	logLines       atomic.Uint64
	parseFailures  atomic.Uint64
	statsFailures  atomic.Uint64
	unhandled      atomic.Uint64
	listenerPanics atomic.Uint64
}

// New creates a Bridge with a pending readiness future and a zero-valued
// statistics snapshot. A nil logger disables diagnostics.
func New(logger *logging.Logger) *Bridge {
	return &Bridge{
		log:   logger.WithComponent("bridge"),
		ready: newReadiness(),
		stats: newStatsNotifier(),
	}
}

// Attach binds a web-view controller as the bridge's transport. The bridge
// holds a non-owning reference; replacing an existing controller is allowed
// and logs a diagnostic to support hot-swapping the embedded view.
func (b *Bridge) Attach(ctrl webview.Controller) error {
	if b.disposed.Load() {
		return ErrBridgeDisposed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl != nil {
		b.log.Info("replacing attached web view controller")
	}
	b.ctrl = ctrl
	return nil
}

// Attached returns the currently attached controller, or nil.
func (b *Bridge) Attached() webview.Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl
}

// AwaitReady blocks until the editor reports ready, the bridge is disposed
// while pending, or the context expires. The bridge imposes no timeout.
func (b *Bridge) AwaitReady(ctx context.Context) error {
	return b.ready.wait(ctx)
}

// Ready returns a channel closed when the readiness future resolves. Check
// ReadyErr after it closes to distinguish ready from failed.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready.done
}

// ReadyErr returns the readiness failure, if any. Only meaningful after the
// Ready channel is closed.
func (b *Bridge) ReadyErr() error {
	if !b.ready.completed() {
		return nil
	}
	return b.ready.err
}

// Stats returns the live statistics observable.
func (b *Bridge) Stats() *StatsNotifier {
	return b.stats
}

// DeliveryStats returns a snapshot of the bridge's message counters.
func (b *Bridge) DeliveryStats() DeliveryStats {
	return DeliveryStats{
		Handled:        b.handled.Load(),
		Dropped:        b.dropped.Load(),
		LogLines:       b.logLines.Load(),
		ParseFailures:  b.parseFailures.Load(),
		StatsFailures:  b.statsFailures.Load(),
		Unhandled:      b.unhandled.Load(),
		ListenerPanics: b.listenerPanics.Load(),
	}
}

// AddRawListener registers a listener invoked for every decoded message, in
// registration order. Returns a handle for removal; a no-op after disposal.
func (b *Bridge) AddRawListener(fn RawListener) ListenerHandle {
	if b.disposed.Load() || fn == nil {
		return ""
	}

	handle := ListenerHandle(uuid.NewString())
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listenerReg{handle: handle, fn: fn})
	return handle
}

// RemoveRawListener removes the registration identified by handle.
func (b *Bridge) RemoveRawListener(handle ListenerHandle) {
	if handle == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, reg := range b.listeners {
		if reg.handle == handle {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// HandleMessage is the single inbound entry point for raw messages from the
// transport. It accepts strings, mappings, sequences, or anything else, and
// never reports an error to the caller; the delivery mechanism is outside
// the bridge's control. Messages arriving after disposal are dropped
// silently since the transport may deliver in-flight messages racing it.
func (b *Bridge) HandleMessage(raw any) {
	if b.disposed.Load() {
		b.dropped.Add(1)
		return
	}

	text := normalizeRaw(raw)

	if payload, ok := strings.CutPrefix(text, logPrefix); ok {
		b.logLines.Add(1)
		b.log.Debug("editor: %s", payload)
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(text), &msg); err != nil || msg == nil {
		b.parseFailures.Add(1)
		b.log.Warn("dropping undecodable message %q: %v", text, err)
		return
	}

	event, ok := msg[eventKey].(string)
	if !ok {
		b.parseFailures.Add(1)
		b.log.Warn("dropping message without event discriminator: %q", text)
		return
	}

	b.handled.Add(1)
	b.route(event, msg)
	b.fanOut(msg)
}

// normalizeRaw converts the transport's weakly-typed payload to a string:
// mappings and sequences are JSON-encoded, nil becomes empty, anything else
// is stringified.
func normalizeRaw(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}

// route updates bridge state for recognized event kinds. Editor-semantic
// events (content, selection, focus, blur, completion) flow to raw
// listeners only; the bridge owns transport plumbing, not editor behavior.
func (b *Bridge) route(event string, msg Message) {
	switch event {
	case EventReady:
		if !b.ready.complete(nil) {
			b.log.Debug("redundant ready event ignored")
		}

	case EventStats:
		b.applyStats(msg)

	case EventError:
		text, _ := msg["message"].(string)
		if text == "" {
			text = unknownEditorError
		}
		b.log.Error("editor error: %s", text)

	case EventContentChanged, EventSelectionChanged, EventFocus, EventBlur, EventCompletionRequest:
		// Host-level events; raw listeners handle these.

	default:
		b.unhandled.Add(1)
		b.log.Debug("unhandled event %q", event)
	}
}

// applyStats decodes a stats payload into a new snapshot. A payload that
// fails to decode keeps the previous snapshot; a half-applied update is
// never visible.
func (b *Bridge) applyStats(msg Message) {
	encoded, err := json.Marshal(msg)
	if err == nil {
		var stats LiveStats
		if err = json.Unmarshal(encoded, &stats); err == nil {
			b.stats.set(stats)
			return
		}
	}
	b.statsFailures.Add(1)
	b.log.Warn("malformed stats payload, keeping previous snapshot: %v", err)
}

// fanOut invokes every registered listener with the decoded message, in
// registration order, against a snapshot taken before iteration. A listener
// may add or remove listeners from within its invocation. Panics are
// recovered and logged so one listener cannot starve the rest.
func (b *Bridge) fanOut(msg Message) {
	b.mu.Lock()
	snapshot := make([]listenerReg, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, reg := range snapshot {
		b.invoke(reg, msg)
	}
}

func (b *Bridge) invoke(reg listenerReg, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.listenerPanics.Add(1)
			b.log.Error("raw listener panicked: %v\n%s", r, debug.Stack())
		}
	}()
	reg.fn(msg)
}

// Dispose tears the bridge down: the disposed flag is set first so
// concurrent callers observe disposal immediately, a pending readiness
// future fails, listeners are cleared, the statistics observable is
// released, and the controller reference is detached. Idempotent.
func (b *Bridge) Dispose() {
	if !b.disposed.CompareAndSwap(false, true) {
		return
	}

	b.ready.complete(ErrBridgeDisposed)

	b.mu.Lock()
	b.listeners = nil
	b.ctrl = nil
	b.mu.Unlock()

	b.stats.close()
	b.log.Debug("bridge disposed")
}
