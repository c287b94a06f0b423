package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type queuedTask struct {
	ctx  context.Context
	fn   func(ctx context.Context)
	done chan struct{}
}

// SerialQueue runs tasks one at a time, in the order Do was called.
// Each trigger service owns one.
type SerialQueue struct {
	tasks chan queuedTask

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewSerialQueue starts the queue's goroutine. Call Stop to release it.
func NewSerialQueue() *SerialQueue {
	q := &SerialQueue{
		tasks:     make(chan queuedTask),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *SerialQueue) run() {
	defer close(q.stoppedCh)

	for {
		select {
		case <-q.stopCh:
			return
		case task := <-q.tasks:
			q.execute(task)
		}
	}
}

func (q *SerialQueue) execute(task queuedTask) {
	defer close(task.done)
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(task.ctx, "panic recovered in trigger queue", "panic", r)
		}
	}()
	task.fn(task.ctx)
}

// Do waits for a free slot and runs fn on the queue goroutine, returning
// once fn has finished. ctx only bounds the wait: once started, fn runs to
// completion with a context that is never cancelled.
func (q *SerialQueue) Do(ctx context.Context, fn func(ctx context.Context)) error {
	task := queuedTask{
		ctx:  context.WithoutCancel(ctx),
		fn:   fn,
		done: make(chan struct{}),
	}

	select {
	case <-q.stopCh:
		return ErrQueueStopped
	case <-ctx.Done():
		return fmt.Errorf("waiting for trigger queue: %w", ctx.Err())
	case q.tasks <- task:
	}

	<-task.done
	return nil
}

// Stop lets the running task finish and rejects new ones.
func (q *SerialQueue) Stop() {
	q.stopOnce.Do(func() { close(q.stopCh) })
	<-q.stoppedCh
}
