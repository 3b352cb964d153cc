package webview

import (
	"runtime"
	"time"

	"github.com/uncrr/monacoview/logging"
)

// FactoryFunc builds a Controller from a Config. Used to override platform
// selection in tests.
type FactoryFunc func(cfg Config) (Controller, error)

// Config configures controller construction.
type Config struct {
	// GOOS overrides the operating system used for variant selection.
	// Defaults to runtime.GOOS.
	GOOS string

	// Logger receives controller diagnostics. Nil disables logging.
	Logger *logging.Logger

	// HostDescriptorPath locates the WebView2 host descriptor file.
	// EdgeView only. Defaults to DefaultHostDescriptorPath().
	HostDescriptorPath string

	// DialTimeout bounds the websocket handshake with the WebView2 host.
	// EdgeView only. Defaults to 10 seconds.
	DialTimeout time.Duration

	// Factory, when set, replaces platform selection entirely.
	Factory FactoryFunc
}

// New creates the Controller variant for the host operating system: EdgeView
// on Windows, GojaView everywhere else. Selection is a pure function of the
// OS; cfg.Factory injects a replacement for testing.
func New(cfg Config) (Controller, error) {
	if cfg.Factory != nil {
		return cfg.Factory(cfg)
	}

	goos := cfg.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	if goos == "windows" {
		return NewEdgeView(cfg)
	}
	return NewGojaView(cfg), nil
}
