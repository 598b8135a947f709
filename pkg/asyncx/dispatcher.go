package asyncx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/logx"
)

// Task is a unit of best-effort work.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Dispatcher runs best-effort tasks on a fixed set of workers.
type Dispatcher struct {
	queue       chan job
	wg          sync.WaitGroup
	taskTimeout time.Duration
	onDrop      func(name string)

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithTaskTimeout bounds each task. Defaults to 5 seconds.
func WithTaskTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.taskTimeout = d }
}

// WithDropHook is called whenever a task is dropped because the queue was full or closed.
func WithDropHook(fn func(name string)) DispatcherOption {
	return func(disp *Dispatcher) { disp.onDrop = fn }
}

// NewDispatcher starts workers goroutines draining a queue of size capacity.
func NewDispatcher(capacity, workers int, opts ...DispatcherOption) *Dispatcher {
	if capacity < 1 {
		capacity = 1
	}
	if workers < 1 {
		workers = 1
	}

	d := &Dispatcher{
		queue:       make(chan job, capacity),
		taskTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Dispatch enqueues fn without blocking. It reports whether the task was accepted.
func (d *Dispatcher) Dispatch(name string, fn Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(name, "closed")
		return false
	}

	select {
	case d.queue <- job{name: name, fn: fn}:
		return true
	default:
		d.drop(name, "queue full")
		return false
	}
}

// Close stops accepting tasks and waits for queued ones until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("asyncx: dispatcher close: %w", ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.taskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logx.WithFields(logx.Fields{"task": j.name, "panic": r}).Error("best-effort task panicked")
		}
	}()

	if err := j.fn(ctx); err != nil {
		logx.WithFields(logx.Fields{"task": j.name}).WithError(err).Warn("best-effort task failed")
	}
}

func (d *Dispatcher) drop(name, reason string) {
	logx.WithFields(logx.Fields{"task": name, "reason": reason}).Warn("best-effort task dropped")
	if d.onDrop != nil {
		d.onDrop(name)
	}
}
