package bridge

import (
	"context"

	"github.com/uncrr/monacoview/webview"
)

// fakeController is a minimal webview.Controller for attach tests.
type fakeController struct {
	closed bool
}

func (f *fakeController) Initialize(context.Context) error       { return nil }
func (f *fakeController) EnableJavaScript(context.Context) error { return nil }
func (f *fakeController) RunJavaScript(context.Context, string) error {
	return nil
}
func (f *fakeController) RunJavaScriptReturningResult(context.Context, string) (any, error) {
	return nil, nil
}
func (f *fakeController) AddJavaScriptChannel(string, webview.ChannelHandler) error { return nil }
func (f *fakeController) RemoveJavaScriptChannel(string) error                      { return nil }
func (f *fakeController) LoadFile(context.Context, string) error                    { return nil }
func (f *fakeController) SetBackgroundColor(webview.Color) error                    { return nil }
func (f *fakeController) Widget() any                                               { return nil }
func (f *fakeController) Close() error {
	f.closed = true
	return nil
}
