package uiqueue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/logging"
)

// Loop is a Scheduler backed by one dedicated goroutine. It stands in for
// the platform UI thread in headless hosts and tests.
type Loop struct {
	queue  *Queue
	logger *logging.Logger

	owner   atomic.Uint64 // goroutine ID of the loop, 0 until started
	started atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewLoop creates a Loop. The logger parameter is optional.
func NewLoop(logger *logging.Logger) *Loop {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Loop{
		queue:  NewQueue(),
		logger: logger.WithComponent("ui-loop"),
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine. Calling Start more than once is a no-op.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		l.started.Store(true)
		ready := make(chan struct{})
		go l.run(ready)
		<-ready
	})
}

// Stop closes the queue, lets the goroutine run every task accepted before
// the call, and waits for it to exit.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.queue.Close()
		if l.started.Load() {
			<-l.done
		}
	})
}

// Post implements Scheduler.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	if !l.queue.Push(task) {
		l.logger.Debug("task dropped after stop")
	}
}

// IsCurrent implements Scheduler.
func (l *Loop) IsCurrent() bool {
	id := l.owner.Load()
	return id != 0 && id == GoroutineID()
}

// Sync runs task on the loop and waits for it to finish. When called from
// the loop itself the task runs inline.
func (l *Loop) Sync(task func()) error {
	if l.IsCurrent() {
		task()
		return nil
	}
	if !l.started.Load() {
		return errors.Wrap(errors.ErrSchedulerStopped, "loop not started")
	}

	finished := make(chan struct{})
	if !l.queue.Push(func() {
		defer close(finished)
		task()
	}) {
		return errors.ErrSchedulerStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop exited; the task either ran already or never will.
		select {
		case <-finished:
			return nil
		default:
			return errors.ErrSchedulerStopped
		}
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

func (l *Loop) run(ready chan<- struct{}) {
	defer close(l.done)
	l.owner.Store(GoroutineID())
	close(ready)

	for {
		task, ok := l.queue.Pop(context.Background())
		if !ok {
			return
		}
		l.safeRun(task)
	}
}

// safeRun invokes a task and recovers from any panic so one misbehaving
// task cannot stall delivery of the rest of the queue.
func (l *Loop) safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("ui task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}
