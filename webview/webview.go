// Package webview abstracts the platform web-view engines that host the
// Monaco editor surface.
//
// Two engine variants implement one Controller contract: GojaView drives an
// in-process JavaScript engine and is the default everywhere except Windows,
// where EdgeView drives an out-of-process WebView2 host. Callers observe the
// same behavior from both; the factory in New picks the variant for the
// current operating system.
package webview

import (
	"context"
	"fmt"
)

// ChannelHandler receives messages posted by the embedded JavaScript context
// on a named channel.
type ChannelHandler func(message any)

// Controller is the capability contract over a platform web-view engine.
// Implementations must behave identically from the caller's perspective.
type Controller interface {
	// Initialize performs engine-specific bootstrap. It is idempotent; only
	// the first call performs work.
	Initialize(ctx context.Context) error

	// EnableJavaScript switches the engine to unrestricted script execution.
	// Idempotent. A no-op on engines that always allow scripting.
	EnableJavaScript(ctx context.Context) error

	// RunJavaScript executes a script, discarding any result. Engine
	// execution failures are logged and returned, never swallowed.
	RunJavaScript(ctx context.Context, script string) error

	// RunJavaScriptReturningResult executes a script and returns a
	// best-effort decoded value. Both variants return the same decoded-value
	// contract; string-coercing engines normalize their results first.
	RunJavaScriptReturningResult(ctx context.Context, script string) (any, error)

	// AddJavaScriptChannel registers a named inbound channel.
	AddJavaScriptChannel(name string, handler ChannelHandler) error

	// RemoveJavaScriptChannel unregisters a named inbound channel.
	RemoveJavaScriptChannel(name string) error

	// LoadFile loads local content by filesystem path.
	LoadFile(ctx context.Context, path string) error

	// SetBackgroundColor applies a background color. Valid before or
	// immediately after Initialize.
	SetBackgroundColor(c Color) error

	// Widget returns the embeddable platform view handle for the host's
	// rendering tree. Created once per controller instance.
	Widget() any

	// Close disposes the controller. Idempotent; releases the underlying
	// engine only if it was initialized.
	Close() error
}

// Color is an RGBA color applied to the web-view background.
type Color struct {
	R, G, B, A uint8
}

// Hex returns the CSS hex form of the color: "#rrggbb", or "#rrggbbaa" when
// the alpha channel is not fully opaque.
func (c Color) Hex() string {
	if c.A != 0xff {
		return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// White is the default editor background.
var White = Color{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
