package workerpool

import (
	"context"
	"sync"
)

// Future is the pending result of a task queued with Submit.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns an already-completed future.
func Resolved[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(val, err)
	return f
}

func (f *Future[T]) resolve(val T, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the task finishes or ctx is done. A ctx error does not cancel the task.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait blocks until the task finishes.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Submit queues fn on p and returns a future for its result. It fails fast with ErrQueueFull
// or ErrPoolClosed instead of blocking.
func Submit[T any](p *Pool, fn func() (T, error)) (*Future[T], error) {
	f := newFuture[T]()
	err := p.enqueue(&task{
		run: func() error {
			val, err := safeCall(fn)
			f.resolve(val, err)
			return err
		},
		cancel: func(err error) {
			var zero T
			f.resolve(zero, err)
		},
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Call is the synchronous form of Submit: it queues fn and blocks on the result.
func Call[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	f, err := Submit(p, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Get(ctx)
}
