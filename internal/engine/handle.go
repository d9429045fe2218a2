package engine

import (
	"context"
	"sync"

	"github.com/arnevik/hfsmx/internal/mind"
)

// Handle is the per-event completion future returned by Apply. It resolves
// with the post-event StateOfMind once the event has been dispatched, or
// fails with the dispatch error. Dropping a handle does not cancel the
// event; its effects still run.
type Handle struct {
	done chan struct{}
	once sync.Once
	mind mind.StateOfMind
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Wait blocks until the event has been dispatched or ctx expires, and
// returns the resulting StateOfMind. A ctx expiry abandons only the wait;
// the event itself is still applied.
func (h *Handle) Wait(ctx context.Context) (mind.StateOfMind, error) {
	select {
	case <-h.done:
		return h.mind, h.err
	case <-ctx.Done():
		return mind.StateOfMind{}, ctx.Err()
	}
}

// Done returns a channel closed when the event has been dispatched.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) resolve(s mind.StateOfMind) {
	h.once.Do(func() {
		h.mind = s
		close(h.done)
	})
}

func (h *Handle) fail(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}
