// Package workerpool runs I/O-bound tasks on a fixed set of goroutines fed by a bounded FIFO queue.
package workerpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMaxQueue is used when a non-positive queue size is requested.
const DefaultMaxQueue = 256

var (
	// ErrQueueFull is returned when the queue is at capacity. Callers shed the task or widen the pool.
	ErrQueueFull = eris.New("workerpool: queue full")
	// ErrPoolClosed is returned for submissions after Shutdown, and resolves futures dropped by Shutdown(false).
	ErrPoolClosed = eris.New("workerpool: pool closed")
)

type task struct {
	run    func() error
	cancel func(error)
}

// Pool is a bounded worker pool. The zero value is not usable; call New.
type Pool struct {
	// mu guards closed and sends on tasks so Shutdown never races a submission.
	mu     sync.RWMutex
	closed bool
	tasks  chan *task
	drop   atomic.Bool

	// resizeMu serializes worker generation changes.
	resizeMu sync.Mutex
	quit     chan struct{}
	workerWG sync.WaitGroup
	workers  atomic.Int32

	idleMu   sync.Mutex
	idle     *sync.Cond
	inflight int

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	rejected  atomic.Int64
	active    atomic.Int32
	busyNanos atomic.Int64
	started   time.Time

	log *zap.Logger
}

// New starts a pool with the given number of workers and queue capacity.
// Non-positive values are clamped: workers to 1, maxQueue to DefaultMaxQueue.
func New(workers, maxQueue int) *Pool {
	log := zap.L().With(zap.String("component", "workerpool"))
	if workers < 1 {
		log.Warn("invalid worker count, clamping", zap.Int("requested", workers), zap.Int("workers", 1))
		workers = 1
	}
	if maxQueue < 1 {
		log.Warn("invalid queue size, using default", zap.Int("requested", maxQueue), zap.Int("max_queue", DefaultMaxQueue))
		maxQueue = DefaultMaxQueue
	}

	p := &Pool{
		tasks:   make(chan *task, maxQueue),
		quit:    make(chan struct{}),
		started: time.Now(),
		log:     log,
	}
	p.idle = sync.NewCond(&p.idleMu)
	p.spawn(workers)
	return p
}

// Execute queues fn without a way to observe its result. Panics in fn are recovered and
// counted as failures.
func (p *Pool) Execute(fn func()) error {
	return p.enqueue(&task{
		run: func() error {
			_, err := safeCall(func() (struct{}, error) {
				fn()
				return struct{}{}, nil
			})
			return err
		},
		cancel: func(error) {},
	})
}

// WaitAll blocks until the queue is empty and no task is running.
func (p *Pool) WaitAll() {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	for p.inflight > 0 {
		p.idle.Wait()
	}
}

// Shutdown stops accepting tasks. With wait, queued tasks still run; without it they are
// dropped and their futures resolve with ErrPoolClosed. Either way Shutdown returns after
// running tasks finish and the workers exit. Calling it again is a no-op.
func (p *Pool) Shutdown(wait bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if !wait {
		p.drop.Store(true)
	}
	pending := len(p.tasks)
	close(p.tasks)
	p.mu.Unlock()

	p.resizeMu.Lock()
	p.workerWG.Wait()
	p.resizeMu.Unlock()

	p.log.Info("worker pool shut down",
		zap.Bool("drained", wait),
		zap.Int("pending_at_shutdown", pending),
		zap.Int64("dropped", p.dropped.Load()),
	)
}

// Resize replaces the worker set with n workers. Running tasks finish on the old workers
// first; the queue is kept. n < 1 is clamped to 1.
func (p *Pool) Resize(n int) error {
	if n < 1 {
		p.log.Warn("invalid worker count, clamping", zap.Int("requested", n), zap.Int("workers", 1))
		n = 1
	}

	p.resizeMu.Lock()
	defer p.resizeMu.Unlock()

	if p.isClosed() {
		return ErrPoolClosed
	}

	old := p.workers.Load()
	close(p.quit)
	p.workerWG.Wait()
	p.quit = make(chan struct{})
	p.spawn(n)

	p.log.Info("worker pool resized", zap.Int32("from", old), zap.Int("to", n))
	return nil
}

// Workers returns the current worker count.
func (p *Pool) Workers() int {
	return int(p.workers.Load())
}

// Closed reports whether Shutdown has been called.
func (p *Pool) Closed() bool {
	return p.isClosed()
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *Pool) enqueue(t *task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.addInflight(1)
	select {
	case p.tasks <- t:
		p.submitted.Add(1)
		return nil
	default:
		p.addInflight(-1)
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

func (p *Pool) spawn(n int) {
	quit := p.quit
	p.workers.Store(int32(n))
	p.workerWG.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(quit)
	}
}

func (p *Pool) worker(quit <-chan struct{}) {
	defer p.workerWG.Done()
	for {
		select {
		case <-quit:
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(t)
		}
	}
}

func (p *Pool) run(t *task) {
	defer p.addInflight(-1)

	if p.drop.Load() {
		t.cancel(ErrPoolClosed)
		p.dropped.Add(1)
		return
	}

	p.active.Add(1)
	start := time.Now()
	err := t.run()
	p.busyNanos.Add(int64(time.Since(start)))
	p.active.Add(-1)

	p.completed.Add(1)
	if err != nil {
		p.failed.Add(1)
	}
}

func (p *Pool) addInflight(delta int) {
	p.idleMu.Lock()
	p.inflight += delta
	if p.inflight == 0 {
		p.idle.Broadcast()
	}
	p.idleMu.Unlock()
}

func safeCall[T any](fn func() (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("workerpool: task panicked: %v", r)
		}
	}()
	return fn()
}
