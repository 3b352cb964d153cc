// Package livereload reloads the web view's content file when it changes on
// disk, for development hosts that rebuild the editor bundle in place.
package livereload

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/uncrr/monacoview/logging"
	"github.com/uncrr/monacoview/webview"
)

// DefaultDebounce coalesces rapid write bursts into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a single content file into a controller on change.
type Watcher struct {
	log      *logging.Logger
	ctrl     webview.Controller
	path     string
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for rapid changes.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		w.log = l.WithComponent("livereload")
	}
}

// New watches path and calls ctrl.LoadFile with it again after each change.
// The parent directory is watched rather than the file itself so that
// editors that replace the file by rename keep triggering events.
func New(ctrl webview.Controller, path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		ctrl:     ctrl,
		path:     abs,
		debounce: DefaultDebounce,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	w.log.Info("content changed, reloading %s", w.path)
	if err := w.ctrl.LoadFile(context.Background(), w.path); err != nil {
		w.log.Error("reload failed: %v", err)
	}
}

// Close stops watching. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
