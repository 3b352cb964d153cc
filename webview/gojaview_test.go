package webview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestGojaView(t *testing.T) *GojaView {
	t.Helper()
	v := NewGojaView(Config{})
	t.Cleanup(func() { _ = v.Close() })

	ctx := context.Background()
	if err := v.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	if err := v.EnableJavaScript(ctx); err != nil {
		t.Fatalf("EnableJavaScript() = %v", err)
	}
	return v
}

func TestGojaView_InitializeIdempotent(t *testing.T) {
	v := NewGojaView(Config{})
	defer v.Close()

	ctx := context.Background()
	if err := v.Initialize(ctx); err != nil {
		t.Fatalf("first Initialize() = %v", err)
	}
	if err := v.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize() = %v", err)
	}
}

func TestGojaView_ScriptingGate(t *testing.T) {
	v := NewGojaView(Config{})
	defer v.Close()

	ctx := context.Background()
	if err := v.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	if err := v.RunJavaScript(ctx, "1"); !errors.Is(err, ErrScriptingDisabled) {
		t.Errorf("RunJavaScript before enable = %v, want ErrScriptingDisabled", err)
	}

	if err := v.EnableJavaScript(ctx); err != nil {
		t.Fatalf("EnableJavaScript() = %v", err)
	}
	// Idempotent.
	if err := v.EnableJavaScript(ctx); err != nil {
		t.Fatalf("second EnableJavaScript() = %v", err)
	}

	if err := v.RunJavaScript(ctx, "1"); err != nil {
		t.Errorf("RunJavaScript after enable = %v", err)
	}
}

func TestGojaView_RunBeforeInitialize(t *testing.T) {
	v := NewGojaView(Config{})
	defer v.Close()

	if err := v.RunJavaScript(context.Background(), "1"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("RunJavaScript before initialize = %v, want ErrNotInitialized", err)
	}
}

func TestGojaView_RunJavaScriptReturningResult(t *testing.T) {
	v := newTestGojaView(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		script string
		want   any
	}{
		{"integer", "40 + 2", int64(42)},
		{"string", `"hello"`, "hello"},
		{"bool", "1 < 2", true},
		{"null", "null", nil},
		{"undefined", "undefined", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.RunJavaScriptReturningResult(ctx, tt.script)
			if err != nil {
				t.Fatalf("RunJavaScriptReturningResult(%q) = %v", tt.script, err)
			}
			if got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestGojaView_RunJavaScript_PropagatesFailure(t *testing.T) {
	v := newTestGojaView(t)

	err := v.RunJavaScript(context.Background(), "throw new Error('editor exploded')")
	if err == nil {
		t.Fatal("expected error from throwing script")
	}
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Errorf("error type = %T, want *EngineError", err)
	}
}

func TestGojaView_Channels(t *testing.T) {
	v := newTestGojaView(t)
	ctx := context.Background()

	received := make(chan any, 1)
	if err := v.AddJavaScriptChannel("monaco", func(msg any) {
		received <- msg
	}); err != nil {
		t.Fatalf("AddJavaScriptChannel() = %v", err)
	}

	if err := v.AddJavaScriptChannel("monaco", func(any) {}); !errors.Is(err, ErrChannelExists) {
		t.Errorf("duplicate AddJavaScriptChannel() = %v, want ErrChannelExists", err)
	}

	if err := v.RunJavaScript(ctx, `monaco.postMessage("ping")`); err != nil {
		t.Fatalf("RunJavaScript() = %v", err)
	}

	select {
	case msg := <-received:
		if msg != "ping" {
			t.Errorf("channel message = %#v, want %q", msg, "ping")
		}
	case <-time.After(time.Second):
		t.Fatal("channel handler not invoked")
	}

	if err := v.RemoveJavaScriptChannel("monaco"); err != nil {
		t.Fatalf("RemoveJavaScriptChannel() = %v", err)
	}
	if err := v.RemoveJavaScriptChannel("monaco"); !errors.Is(err, ErrNoSuchChannel) {
		t.Errorf("second RemoveJavaScriptChannel() = %v, want ErrNoSuchChannel", err)
	}

	// The global is gone; posting must now fail.
	if err := v.RunJavaScript(ctx, `monaco.postMessage("again")`); err == nil {
		t.Error("expected error posting to a removed channel")
	}
}

func TestGojaView_LoadFile(t *testing.T) {
	v := newTestGojaView(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "bootstrap.js")
	if err := os.WriteFile(path, []byte("globalThis.loaded = 7;"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := v.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile() = %v", err)
	}

	got, err := v.RunJavaScriptReturningResult(ctx, "loaded")
	if err != nil {
		t.Fatalf("RunJavaScriptReturningResult() = %v", err)
	}
	if got != int64(7) {
		t.Errorf("loaded = %#v, want int64(7)", got)
	}
}

func TestGojaView_LoadFile_Missing(t *testing.T) {
	v := newTestGojaView(t)

	err := v.LoadFile(context.Background(), filepath.Join(t.TempDir(), "absent.js"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGojaView_SetBackgroundColor(t *testing.T) {
	v := NewGojaView(Config{})
	defer v.Close()
	ctx := context.Background()

	// Valid before Initialize; published once the loop starts.
	if err := v.SetBackgroundColor(Color{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff}); err != nil {
		t.Fatalf("SetBackgroundColor() = %v", err)
	}
	if err := v.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	if err := v.EnableJavaScript(ctx); err != nil {
		t.Fatalf("EnableJavaScript() = %v", err)
	}

	got, err := v.RunJavaScriptReturningResult(ctx, "__monacoBackground")
	if err != nil {
		t.Fatalf("RunJavaScriptReturningResult() = %v", err)
	}
	if got != "#1e1e2e" {
		t.Errorf("__monacoBackground = %#v, want %q", got, "#1e1e2e")
	}
}

func TestGojaView_Widget(t *testing.T) {
	v := NewGojaView(Config{})
	defer v.Close()

	first := v.Widget()
	if first == nil {
		t.Fatal("Widget() returned nil")
	}
	if second := v.Widget(); second != first {
		t.Error("Widget() is not stable across calls")
	}
}

func TestGojaView_CloseIdempotent(t *testing.T) {
	v := newTestGojaView(t)

	if err := v.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}

	if err := v.RunJavaScript(context.Background(), "1"); !errors.Is(err, ErrClosed) {
		t.Errorf("RunJavaScript after close = %v, want ErrClosed", err)
	}
	if err := v.Initialize(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Initialize after close = %v, want ErrClosed", err)
	}
}

func TestGojaView_CloseWithoutInitialize(t *testing.T) {
	v := NewGojaView(Config{})
	if err := v.Close(); err != nil {
		t.Fatalf("Close() on uninitialized view = %v", err)
	}
}
