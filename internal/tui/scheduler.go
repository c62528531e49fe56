package tui

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/OlenaTeqBlaze/adunit/internal/logging"
	"github.com/OlenaTeqBlaze/adunit/internal/uiqueue"
)

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// taskMsg carries a posted task into the program's update loop.
type taskMsg struct {
	fn func()
}

// Scheduler makes the Bubbletea update loop the UI execution context.
// Posted tasks are pumped into the program as messages and run by
// Model.Update, so they share the goroutine that handles key presses.
type Scheduler struct {
	queue  *uiqueue.Queue
	logger *logging.Logger

	owner atomic.Uint64 // goroutine ID of the update loop, 0 until claimed

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler. Tasks posted before Start are held
// until a program is attached. The logger parameter is optional.
func NewScheduler(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Scheduler{
		queue:  uiqueue.NewQueue(),
		logger: logger.WithComponent("tui-scheduler"),
	}
}

// Start begins pumping tasks into sender. Calling Start more than once is
// a no-op.
func (s *Scheduler) Start(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			task, ok := s.queue.Pop(ctx)
			if !ok {
				return
			}
			sender.Send(taskMsg{fn: task})
		}
	}()
}

// Stop closes the queue and waits for the pump to exit. Tasks not yet
// handed to the program are dropped.
func (s *Scheduler) Stop() {
	s.queue.Close()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Post implements uiqueue.Scheduler.
func (s *Scheduler) Post(task func()) {
	if task == nil {
		return
	}
	if !s.queue.Push(task) {
		s.logger.Debug("task dropped after stop")
	}
}

// IsCurrent implements uiqueue.Scheduler.
func (s *Scheduler) IsCurrent() bool {
	id := s.owner.Load()
	return id != 0 && id == uiqueue.GoroutineID()
}

// Pending returns the number of tasks waiting to be pumped.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// claim records the calling goroutine as the UI execution context. The
// update loop calls it on every message; only the first call sticks.
func (s *Scheduler) claim() {
	if s.owner.Load() == 0 {
		s.owner.CompareAndSwap(0, uiqueue.GoroutineID())
	}
}

// run executes a pumped task and recovers from any panic so one
// misbehaving task cannot take down the program.
func (s *Scheduler) run(msg taskMsg) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ui task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	msg.fn()
}
