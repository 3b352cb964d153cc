// Package jsresult normalizes script execution results returned by web-view
// engines.
//
// The WebView2 engine returns every script result as a string: a JSON-encoded
// value, the literal "null", or a quoted string. Normalize recovers a
// best-effort typed value so callers observe the same contract on every
// platform. Engines that already return typed values pass through untouched.
package jsresult

import (
	"encoding/json"
	"strings"
)

// Normalize decodes a raw engine result into a canonical value.
//
// Rules, in order: non-string input passes through; empty or whitespace-only
// strings pass through; the literal "null" maps to nil; a string wrapped in
// one pair of double quotes is unwrapped (JSON decoding first, falling back
// to stripping the outer quotes); anything else passes through unchanged.
// Bare object- or array-looking strings are deliberately not parsed here;
// that is the caller's decision.
func Normalize(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return raw
	}

	if trimmed == "null" {
		return nil
	}

	if len(trimmed) >= 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		var decoded string
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
		// Malformed as JSON (stray interior quotes, bad escapes).
		return trimmed[1 : len(trimmed)-1]
	}

	return raw
}
