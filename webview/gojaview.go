package webview

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"

	"github.com/uncrr/monacoview/logging"
)

// GojaView drives an in-process goja JavaScript engine. It is the default
// controller variant everywhere except Windows and the one used by headless
// hosts and tests.
//
// All engine work is serialized on the engine's event loop goroutine;
// controller methods submit jobs and wait, so callers never touch the
// runtime concurrently. Channels deliver per-channel, and script results
// come back naturally typed, so no result normalization is applied.
type GojaView struct {
	log  *logging.Logger
	loop *eventloop.EventLoop

	mu          sync.Mutex
	initialized bool
	closed      bool
	channels    map[string]ChannelHandler
	background  Color

	scripting atomic.Bool
}

// NewGojaView creates an uninitialized GojaView.
func NewGojaView(cfg Config) *GojaView {
	return &GojaView{
		log:        cfg.Logger.WithComponent("gojaview"),
		loop:       eventloop.NewEventLoop(),
		channels:   make(map[string]ChannelHandler),
		background: White,
	}
}

// Initialize starts the engine's event loop. Only the first call performs
// work; this variant wires no navigation or console hooks.
func (v *GojaView) Initialize(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.initialized {
		return nil
	}

	v.loop.Start()
	v.initialized = true
	v.publishBackgroundLocked()
	v.log.Debug("engine event loop started")
	return nil
}

// EnableJavaScript switches the engine to unrestricted script execution.
func (v *GojaView) EnableJavaScript(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	v.scripting.Store(true)
	return nil
}

// RunJavaScript executes a script and discards the result.
func (v *GojaView) RunJavaScript(ctx context.Context, script string) error {
	_, err := v.eval(ctx, "run javascript", script)
	return err
}

// RunJavaScriptReturningResult executes a script and returns its value
// exported to a Go type. The engine returns typed values natively.
func (v *GojaView) RunJavaScriptReturningResult(ctx context.Context, script string) (any, error) {
	return v.eval(ctx, "run javascript returning result", script)
}

// eval submits a script to the event loop and waits for its result. The
// export happens on the loop goroutine since goja values are bound to it.
func (v *GojaView) eval(ctx context.Context, op, script string) (any, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, ErrClosed
	}
	if !v.initialized {
		v.mu.Unlock()
		return nil, ErrNotInitialized
	}
	v.mu.Unlock()

	if !v.scripting.Load() {
		return nil, ErrScriptingDisabled
	}

	type evalResult struct {
		value any
		err   error
	}
	ch := make(chan evalResult, 1)

	ok := v.loop.RunOnLoop(func(vm *goja.Runtime) {
		val, err := vm.RunString(script)
		var out any
		if err == nil && val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
			out = val.Export()
		}
		ch <- evalResult{value: out, err: err}
	})
	if !ok {
		return nil, ErrClosed
	}

	select {
	case res := <-ch:
		if res.err != nil {
			v.log.Error("%s failed: %v", op, res.err)
			return nil, engineErr(op, res.err)
		}
		return res.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AddJavaScriptChannel installs a global object named after the channel with
// a postMessage function delivering to the handler.
func (v *GojaView) AddJavaScriptChannel(name string, handler ChannelHandler) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if !v.initialized {
		v.mu.Unlock()
		return ErrNotInitialized
	}
	if _, exists := v.channels[name]; exists {
		v.mu.Unlock()
		return ErrChannelExists
	}
	v.channels[name] = handler
	v.mu.Unlock()

	done := make(chan error, 1)
	if !v.loop.RunOnLoop(func(vm *goja.Runtime) {
		obj := vm.NewObject()
		err := obj.Set("postMessage", func(call goja.FunctionCall) goja.Value {
			handler(call.Argument(0).Export())
			return goja.Undefined()
		})
		if err == nil {
			err = vm.GlobalObject().Set(name, obj)
		}
		done <- err
	}) {
		return ErrClosed
	}

	if err := <-done; err != nil {
		v.mu.Lock()
		delete(v.channels, name)
		v.mu.Unlock()
		v.log.Error("add channel %q failed: %v", name, err)
		return engineErr("add javascript channel", err)
	}
	v.log.Debug("channel %q registered", name)
	return nil
}

// RemoveJavaScriptChannel deletes the channel's global object.
func (v *GojaView) RemoveJavaScriptChannel(name string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if _, exists := v.channels[name]; !exists {
		v.mu.Unlock()
		return ErrNoSuchChannel
	}
	delete(v.channels, name)
	v.mu.Unlock()

	done := make(chan error, 1)
	if !v.loop.RunOnLoop(func(vm *goja.Runtime) {
		done <- vm.GlobalObject().Delete(name)
	}) {
		return ErrClosed
	}

	if err := <-done; err != nil {
		v.log.Error("remove channel %q failed: %v", name, err)
		return engineErr("remove javascript channel", err)
	}
	return nil
}

// LoadFile reads local content and evaluates it as the editor bootstrap
// script. The engine has no URL loader, so file content is executed directly.
func (v *GojaView) LoadFile(ctx context.Context, path string) error {
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

	content, err := os.ReadFile(path)
	if err != nil {
		v.log.Error("load file %q failed: %v", path, err)
		return fmt.Errorf("load file %q: %w", path, err)
	}

	type loadResult struct{ err error }
	ch := make(chan loadResult, 1)
	if !v.loop.RunOnLoop(func(vm *goja.Runtime) {
		_, err := vm.RunScript(path, string(content))
		ch <- loadResult{err: err}
	}) {
		return ErrClosed
	}

	select {
	case res := <-ch:
		if res.err != nil {
			v.log.Error("load file %q failed: %v", path, res.err)
			return engineErr("load file", res.err)
		}
		v.log.Debug("loaded %q", path)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetBackgroundColor records the background color and publishes it to the
// runtime as __monacoBackground. Valid before Initialize; the stored color
// is published once the loop starts.
func (v *GojaView) SetBackgroundColor(c Color) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	v.background = c
	if v.initialized {
		v.publishBackgroundLocked()
	}
	return nil
}

func (v *GojaView) publishBackgroundLocked() {
	hex := v.background.Hex()
	v.loop.RunOnLoop(func(vm *goja.Runtime) {
		_ = vm.GlobalObject().Set("__monacoBackground", hex)
	})
}

// Widget returns the engine handle embedding hosts hold on to: the event
// loop that owns the runtime.
func (v *GojaView) Widget() any {
	return v.loop
}

// Close stops the event loop if it was started and clears channel
// registrations. Idempotent.
func (v *GojaView) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	v.channels = nil

	if v.initialized {
		v.loop.Stop()
		v.log.Debug("engine event loop stopped")
	}
	return nil
}
