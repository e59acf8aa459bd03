package ahttp

import (
	"context"
	"sync"
)

// Future is the handle returned by AsyncSend. It is fulfilled exactly
// once (spec.md §3 invariant), at the connection's first terminal
// transition.
type Future struct {
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	resp *Response
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// fulfill resolves the future. Only the first call has any effect;
// later calls are no-ops, which is what guarantees the "exactly once"
// invariant even if callers accidentally invoke it twice.
func (f *Future) fulfill(resp *Response, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.resp, f.err = resp, err
		f.mu.Unlock()
		close(f.done)
	})
}

// Wait blocks until the future is fulfilled or ctx is done, whichever
// happens first.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done reports whether the future has already been fulfilled, without
// blocking.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
