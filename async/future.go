// Package async provides a minimal future/promise pair used to hand results of
// background work (tile downloads, local reads) to the simulation goroutine.
package async

import (
	"context"
	"sync"
)

// Future is a read-only view of a value that becomes available later.
// Continuations registered with OnResult run exactly once, on the goroutine
// that settles the future (or immediately, if it is already settled).
type Future[T any] struct {
	mu       sync.Mutex
	settled  bool
	value    T
	err      error
	handlers []func(T, error)
	done     chan struct{}
}

// Promise is the writable side of a Future.
type Promise[T any] struct {
	future *Future[T]
}

func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{future: &Future[T]{done: make(chan struct{})}}
}

func (p *Promise[T]) Future() *Future[T] {
	return p.future
}

// Resolve settles the future with a value. Settling an already settled future is a no-op.
func (p *Promise[T]) Resolve(value T) {
	p.future.settle(value, nil)
}

// Reject settles the future with an error.
func (p *Promise[T]) Reject(err error) {
	var zero T
	p.future.settle(zero, err)
}

func (f *Future[T]) settle(value T, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.value = value
	f.err = err
	handlers := f.handlers
	f.handlers = nil
	close(f.done)
	f.mu.Unlock()

	for _, h := range handlers {
		h(value, err)
	}
}

// Resolved returns an already settled successful future.
func Resolved[T any](value T) *Future[T] {
	p := NewPromise[T]()
	p.Resolve(value)
	return p.Future()
}

// Failed returns an already settled failed future.
func Failed[T any](err error) *Future[T] {
	p := NewPromise[T]()
	p.Reject(err)
	return p.Future()
}

// Go runs fn on a new goroutine and returns a future of its outcome.
func Go[T any](fn func() (T, error)) *Future[T] {
	p := NewPromise[T]()
	go func() {
		value, err := fn()
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(value)
	}()
	return p.Future()
}

// OnResult registers success and failure continuations. Either may be nil.
func (f *Future[T]) OnResult(success func(T), failure func(error)) {
	f.Then(func(value T, err error) {
		if err != nil {
			if failure != nil {
				failure(err)
			}
			return
		}
		if success != nil {
			success(value)
		}
	})
}

// Then registers a continuation receiving both outcome parts.
func (f *Future[T]) Then(handler func(T, error)) {
	f.mu.Lock()
	if !f.settled {
		f.handlers = append(f.handlers, handler)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	handler(value, err)
}

// Settled reports whether the future already holds an outcome.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Wait blocks until the future settles or ctx is done.
// It must never be called from the simulation goroutine.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Map returns a future holding fn applied to the successful value of f.
func Map[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	p := NewPromise[U]()
	f.OnResult(
		func(value T) { p.Resolve(fn(value)) },
		p.Reject,
	)
	return p.Future()
}
