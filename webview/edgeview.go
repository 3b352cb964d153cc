package webview

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/uncrr/monacoview/logging"
	"github.com/uncrr/monacoview/webview/jsresult"
)

const defaultDialTimeout = 10 * time.Second

// frame is the JSON wire format exchanged with the WebView2 host process.
type frame struct {
	Op      string `json:"op"`
	ID      string `json:"id,omitempty"`      // eval correlation
	Script  string `json:"script,omitempty"`  // eval
	URL     string `json:"url,omitempty"`     // navigate, navigation
	Color   string `json:"color,omitempty"`   // background
	Value   string `json:"value,omitempty"`   // result (always string-encoded)
	Error   string `json:"error,omitempty"`   // result
	Payload string `json:"payload,omitempty"` // message
	Level   string `json:"level,omitempty"`   // console
	Text    string `json:"text,omitempty"`    // console
	Success bool   `json:"success,omitempty"` // navigation
}

type evalReply struct {
	value  string
	errMsg string
	err    error
}

// EdgeView drives a WebView2 host process over a local websocket. It is the
// controller variant selected on Windows.
//
// WebView2 exposes one message stream for the whole view rather than
// per-channel delivery, and its script results are always string-encoded;
// EdgeView demultiplexes the stream to every registered channel handler and
// applies jsresult.Normalize before returning results, so callers see the
// same contract as the in-process variant.
type EdgeView struct {
	log         *logging.Logger
	descPath    string
	dialTimeout time.Duration

	mu          sync.Mutex
	initialized bool
	closed      bool
	desc        HostDescriptor
	channels    map[string]ChannelHandler
	pending     map[string]chan evalReply
	deferred    []frame // frames queued before Initialize (background color)

	conn       *websocket.Conn
	writeMu    sync.Mutex
	readerDone chan struct{}

	// Default log hooks, wired during Initialize.
	onNavigation func(url string, success bool)
	onConsole    func(level, text string)
}

// NewEdgeView creates an uninitialized EdgeView.
func NewEdgeView(cfg Config) (*EdgeView, error) {
	descPath := cfg.HostDescriptorPath
	if descPath == "" {
		descPath = DefaultHostDescriptorPath()
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	return &EdgeView{
		log:         cfg.Logger.WithComponent("edgeview"),
		descPath:    descPath,
		dialTimeout: dialTimeout,
		channels:    make(map[string]ChannelHandler),
		pending:     make(map[string]chan evalReply),
	}, nil
}

// Initialize reads the host descriptor, connects to the host, wires the
// default navigation-completion and console log hooks, and starts the
// reader. Only the first call performs work.
func (v *EdgeView) Initialize(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.initialized {
		return nil
	}

	desc, err := ReadHostDescriptor(v.descPath)
	if err != nil {
		v.log.Error("initialize failed: %v", err)
		return engineErr("initialize", err)
	}

	endpoint := url.URL{
		Scheme:   "ws",
		Host:     desc.Address,
		Path:     "/bridge",
		RawQuery: url.Values{"token": {desc.Token}}.Encode(),
	}

	dialer := websocket.Dialer{HandshakeTimeout: v.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		v.log.Error("initialize failed: cannot connect to host at %s: %v", desc.Address, err)
		return engineErr("initialize", fmt.Errorf("connect to WebView2 host at %s: %w", desc.Address, err))
	}

	v.desc = desc
	v.conn = conn
	v.onNavigation = func(url string, success bool) {
		v.log.Debug("navigation completed: %s success=%v", url, success)
	}
	v.onConsole = func(level, text string) {
		v.log.Debug("console[%s]: %s", level, text)
	}
	v.readerDone = make(chan struct{})
	go v.readLoop(conn)

	v.initialized = true

	for _, f := range v.deferred {
		if err := v.writeFrame(f); err != nil {
			v.log.Warn("deferred %s frame failed: %v", f.Op, err)
		}
	}
	v.deferred = nil

	v.log.Debug("connected to host at %s", desc.Address)
	return nil
}

// EnableJavaScript is a no-op; the WebView2 engine always allows scripting.
func (v *EdgeView) EnableJavaScript(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	return nil
}

// readLoop owns all inbound traffic from the host.
func (v *EdgeView) readLoop(conn *websocket.Conn) {
	defer close(v.readerDone)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			v.mu.Lock()
			closing := v.closed
			for id, ch := range v.pending {
				ch <- evalReply{err: ErrClosed}
				delete(v.pending, id)
			}
			v.mu.Unlock()
			if !closing {
				v.log.Warn("host connection lost: %v", err)
			}
			return
		}

		switch f.Op {
		case "result":
			v.mu.Lock()
			ch, ok := v.pending[f.ID]
			if ok {
				delete(v.pending, f.ID)
			}
			v.mu.Unlock()
			if ok {
				ch <- evalReply{value: f.Value, errMsg: f.Error}
			}

		case "message":
			// The engine has a single message stream for the whole view, so
			// delivery cannot be filtered by channel name here. Every
			// registered handler receives every message; changing this would
			// break content that relies on the current broadcast behavior.
			v.mu.Lock()
			handlers := make([]ChannelHandler, 0, len(v.channels))
			for _, h := range v.channels {
				handlers = append(handlers, h)
			}
			v.mu.Unlock()
			for _, h := range handlers {
				h(f.Payload)
			}

		case "navigation":
			if v.onNavigation != nil {
				v.onNavigation(f.URL, f.Success)
			}

		case "console":
			if v.onConsole != nil {
				v.onConsole(f.Level, f.Text)
			}

		default:
			v.log.Debug("unknown host frame op %q", f.Op)
		}
	}
}

func (v *EdgeView) writeFrame(f frame) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	return v.conn.WriteJSON(f)
}

// eval sends a script to the host and waits for the correlated result.
func (v *EdgeView) eval(ctx context.Context, op, script string) (string, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return "", ErrClosed
	}
	if !v.initialized {
		v.mu.Unlock()
		return "", ErrNotInitialized
	}
	id := uuid.NewString()
	ch := make(chan evalReply, 1)
	v.pending[id] = ch
	v.mu.Unlock()

	if err := v.writeFrame(frame{Op: "eval", ID: id, Script: script}); err != nil {
		v.mu.Lock()
		delete(v.pending, id)
		v.mu.Unlock()
		v.log.Error("%s failed: %v", op, err)
		return "", engineErr(op, err)
	}

	select {
	case reply := <-ch:
		if reply.err != nil {
			v.log.Error("%s failed: %v", op, reply.err)
			return "", reply.err
		}
		if reply.errMsg != "" {
			v.log.Error("%s failed: %s", op, reply.errMsg)
			return "", engineErr(op, fmt.Errorf("%s", reply.errMsg))
		}
		return reply.value, nil
	case <-ctx.Done():
		v.mu.Lock()
		delete(v.pending, id)
		v.mu.Unlock()
		return "", ctx.Err()
	}
}

// RunJavaScript executes a script, discarding the host's string-encoded
// result without normalizing it.
func (v *EdgeView) RunJavaScript(ctx context.Context, script string) error {
	_, err := v.eval(ctx, "run javascript", script)
	return err
}

// RunJavaScriptReturningResult executes a script and returns the host's
// result decoded through jsresult.Normalize, so callers observe the same
// typed-value contract as the in-process engine.
func (v *EdgeView) RunJavaScriptReturningResult(ctx context.Context, script string) (any, error) {
	value, err := v.eval(ctx, "run javascript returning result", script)
	if err != nil {
		return nil, err
	}
	return jsresult.Normalize(value), nil
}

// AddJavaScriptChannel registers a channel handler. Registration is local;
// the host's single stream is demultiplexed in readLoop.
func (v *EdgeView) AddJavaScriptChannel(name string, handler ChannelHandler) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if _, exists := v.channels[name]; exists {
		return ErrChannelExists
	}
	v.channels[name] = handler
	v.log.Debug("channel %q registered", name)
	return nil
}

// RemoveJavaScriptChannel unregisters a channel handler.
func (v *EdgeView) RemoveJavaScriptChannel(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if _, exists := v.channels[name]; !exists {
		return ErrNoSuchChannel
	}
	delete(v.channels, name)
	return nil
}

// LoadFile translates a filesystem path to a file URI and asks the host to
// navigate to it; the engine has no direct file-path loader.
func (v *EdgeView) LoadFile(ctx context.Context, path string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if !v.initialized {
		v.mu.Unlock()
		return ErrNotInitialized
	}
	v.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("load file %q: %w", path, err)
	}
	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	if err := v.writeFrame(frame{Op: "navigate", URL: uri.String()}); err != nil {
		v.log.Error("load file %q failed: %v", path, err)
		return engineErr("load file", err)
	}
	v.log.Debug("navigating to %s", uri.String())
	return nil
}

// SetBackgroundColor applies a background color, queueing it until the host
// connection exists when called before Initialize.
func (v *EdgeView) SetBackgroundColor(c Color) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}

	f := frame{Op: "background", Color: c.Hex()}
	if !v.initialized {
		v.deferred = append(v.deferred, f)
		return nil
	}
	if err := v.writeFrame(f); err != nil {
		v.log.Error("set background failed: %v", err)
		return engineErr("set background color", err)
	}
	return nil
}

// Widget returns the native window handle of the embedded view, available
// once the host descriptor has been read.
func (v *EdgeView) Widget() any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return uintptr(v.desc.HWND)
}

// Close disposes the controller: stops the reader, fails pending script
// calls, clears channel registrations, and closes the host connection only
// if it was established. Idempotent.
func (v *EdgeView) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.channels = nil
	conn := v.conn
	readerDone := v.readerDone
	initialized := v.initialized
	v.mu.Unlock()

	if initialized {
		_ = conn.Close()
		<-readerDone
	}
	return nil
}
