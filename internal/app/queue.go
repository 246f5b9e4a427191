package app

import (
	"context"
	"runtime/debug"
	"sync"
)

// queue runs posted tasks one at a time, in order, on the goroutine that
// calls run. It never blocks a poster.
type queue struct {
	name    string
	onPanic func(error)

	mu      sync.Mutex
	tasks   []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

func newQueue(name string, onPanic func(error)) *queue {
	return &queue{
		name:    name,
		onPanic: onPanic,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// post appends fn. It fails once the queue has stopped.
func (q *queue) post(fn func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrNotRunning
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// do posts fn and waits for it to finish. It must not be called from the
// queue's own goroutine.
func (q *queue) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := q.post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		return ErrNotRunning
	}
}

// run executes tasks until ctx is done. Pending tasks are dropped.
func (q *queue) run(ctx context.Context) {
	defer q.close()
	for {
		q.mu.Lock()
		tasks := q.tasks
		q.tasks = nil
		q.mu.Unlock()

		for _, task := range tasks {
			if ctx.Err() != nil {
				return
			}
			q.exec(task)
		}
		if len(tasks) > 0 {
			continue
		}

		select {
		case <-q.wake:
		case <-ctx.Done():
			return
		}
	}
}

func (q *queue) exec(task func()) {
	defer func() {
		if v := recover(); v != nil && q.onPanic != nil {
			q.onPanic(&RecoveredPanicError{Value: v, Stack: string(debug.Stack())})
		}
	}()
	task()
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.tasks = nil
	close(q.stopped)
}
