package webview

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// HostDescriptor is the handshake file the WebView2 host process writes at
// startup so the library can find and authenticate its message endpoint.
type HostDescriptor struct {
	// Address is the host:port of the websocket endpoint.
	Address string `toml:"address"`

	// Token authenticates the bridge connection.
	Token string `toml:"token"`

	// HWND is the native window handle of the embedded view.
	HWND uint64 `toml:"hwnd"`
}

// DefaultHostDescriptorPath returns the conventional descriptor location.
func DefaultHostDescriptorPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, _ = os.UserHomeDir()
	}
	return filepath.Join(configDir, "monacoview", "host.toml")
}

// ReadHostDescriptor loads and validates a descriptor file.
func ReadHostDescriptor(path string) (HostDescriptor, error) {
	var desc HostDescriptor

	data, err := os.ReadFile(path)
	if err != nil {
		return desc, fmt.Errorf("read host descriptor %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, &desc); err != nil {
		return desc, fmt.Errorf("parse host descriptor %q: %w", path, err)
	}
	if desc.Address == "" {
		return desc, fmt.Errorf("host descriptor %q: missing address", path)
	}
	return desc, nil
}
