package bridge

import (
	"context"
	"sync"
)

// readiness is a one-shot future: pending until completed once, with or
// without an error. Completion never repeats and never reverts.
type readiness struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newReadiness() *readiness {
	return &readiness{done: make(chan struct{})}
}

// complete resolves the future. Returns true on the first call only.
func (r *readiness) complete(err error) bool {
	first := false
	r.once.Do(func() {
		r.err = err
		first = true
		close(r.done)
	})
	return first
}

func (r *readiness) completed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// wait blocks until the future resolves or the context expires. The bridge
// imposes no timeout of its own; that is the caller's decision.
func (r *readiness) wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
