package statecache

import (
	"context"
	"sync"
)

// Result is the outcome of a Set. It resolves when the flush carrying the
// call's data completes. Calls coalesced into one flush share a Result.
type Result struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func resolvedResult(err error) *Result {
	r := newResult()
	r.resolve(err)
	return r
}

func (r *Result) resolve(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed once the result is resolved.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err returns the outcome, or nil while unresolved.
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the result resolves or ctx is done.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
