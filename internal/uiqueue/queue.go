package uiqueue

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
	"github.com/petermattis/goid"
)

// Scheduler runs closures on a single designated execution context.
type Scheduler interface {
	// Post enqueues task and returns immediately. Tasks run in the order
	// they were posted. Tasks posted after shutdown are dropped.
	Post(task func())

	// IsCurrent reports whether the caller is running on the execution
	// context this Scheduler drives.
	IsCurrent() bool
}

// Queue is an unbounded FIFO of tasks with a single consumer.
// Push never blocks; Pop blocks until a task is available, the queue is
// closed and drained, or ctx is done.
type Queue struct {
	mu     sync.Mutex
	tasks  deque.Deque[func()]
	closed bool
	signal chan struct{}
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
	}
}

// Push appends task. Returns false if the queue is closed.
func (q *Queue) Push(task func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks.PushBack(task)
	q.mu.Unlock()

	q.wake()
	return true
}

// Pop removes and returns the oldest task. The second result is false once
// the queue is closed and empty, or when ctx is done.
func (q *Queue) Pop(ctx context.Context) (func(), bool) {
	for {
		q.mu.Lock()
		if q.tasks.Len() > 0 {
			task := q.tasks.PopFront()
			q.mu.Unlock()
			return task, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close stops accepting new tasks. Tasks already queued are still returned
// by Pop.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Len()
}

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// GoroutineID returns the runtime identifier of the calling goroutine.
// Schedulers record it for the goroutine they drive so IsCurrent can be
// answered without cooperation from the caller.
func GoroutineID() uint64 {
	return uint64(goid.Get())
}
