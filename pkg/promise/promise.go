// pkg/promise/promise.go

// Package promise provides a single-settlement container for the result of
// an asynchronous operation. Driver fetches hand these to the assertion
// layer so checks can be queued before the value exists and applied once
// it does. A promise settles exactly once, either with a value or with an
// error, and never transitions again.
package promise

import (
	"context"
	"sync"
)

// Promise holds the eventual result of an asynchronous operation.
// The zero value is not usable; construct with New, Go, Resolved or
// Rejected.
type Promise[T any] struct {
	done chan struct{}

	mu       sync.Mutex
	settled  bool
	value    T
	err      error
	handlers []func(T, error)
}

// New returns an unsettled promise together with its resolve and reject
// functions. The first call to either settles the promise; subsequent
// calls are ignored.
func New[T any]() (p *Promise[T], resolve func(T), reject func(error)) {
	p = &Promise[T]{done: make(chan struct{})}
	resolve = func(v T) { p.settle(v, nil) }
	reject = func(err error) {
		var zero T
		p.settle(zero, err)
	}
	return p, resolve, reject
}

// Go runs fn on its own goroutine and settles the returned promise with
// fn's result.
func Go[T any](fn func() (T, error)) *Promise[T] {
	p, resolve, reject := New[T]()
	go func() {
		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}()
	return p
}

// Resolved returns a promise already settled with v.
func Resolved[T any](v T) *Promise[T] {
	p, resolve, _ := New[T]()
	resolve(v)
	return p
}

// Rejected returns a promise already settled with err.
func Rejected[T any](err error) *Promise[T] {
	p, _, reject := New[T]()
	reject(err)
	return p
}

// Transform derives a new promise whose settlement is computed from p's
// by fn. fn runs on whichever goroutine settles p.
func Transform[T, U any](p *Promise[T], fn func(T, error) (U, error)) *Promise[U] {
	out, resolve, reject := New[U]()
	p.OnSettled(func(v T, err error) {
		u, uerr := fn(v, err)
		if uerr != nil {
			reject(uerr)
			return
		}
		resolve(u)
	})
	return out
}

func (p *Promise[T]) settle(v T, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.value = v
	p.err = err
	handlers := p.handlers
	p.handlers = nil
	p.mu.Unlock()

	close(p.done)
	for _, h := range handlers {
		h(v, err)
	}
}

// Done returns a channel that is closed when the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether the promise has settled.
func (p *Promise[T]) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Wait blocks until the promise settles or ctx is done. On settlement it
// returns the settled value and error; on cancellation it returns the
// context's error. The underlying operation is not cancelled.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled value and error. ok is false while the
// promise is still pending, in which case value and err are zero.
func (p *Promise[T]) Result() (value T, err error, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.settled {
		var zero T
		return zero, nil, false
	}
	return p.value, p.err, true
}

// OnSettled registers fn to run once the promise settles. Handlers run in
// registration order on the goroutine that settles the promise; if the
// promise is already settled, fn runs inline before OnSettled returns.
func (p *Promise[T]) OnSettled(fn func(T, error)) {
	p.mu.Lock()
	if !p.settled {
		p.handlers = append(p.handlers, fn)
		p.mu.Unlock()
		return
	}
	v, err := p.value, p.err
	p.mu.Unlock()
	fn(v, err)
}
