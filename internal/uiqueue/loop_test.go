package uiqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/OlenaTeqBlaze/adunit/internal/errors"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	var got []int
	for i := 0; i < 5; i++ {
		n := i
		if !q.Push(func() { got = append(got, n) }) {
			t.Fatal("Push on open queue returned false")
		}
	}
	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		task, ok := q.Pop(context.Background())
		if !ok {
			t.Fatalf("Pop %d returned !ok", i)
		}
		task()
	}

	for i, n := range got {
		if n != i {
			t.Errorf("task %d ran out of order: got %d", i, n)
		}
	}
}

func TestQueue_CloseDrainsThenStops(t *testing.T) {
	q := NewQueue()
	q.Push(func() {})
	q.Close()

	if q.Push(func() {}) {
		t.Error("Push after Close should return false")
	}
	if _, ok := q.Pop(context.Background()); !ok {
		t.Error("task queued before Close should still be returned")
	}
	if _, ok := q.Pop(context.Background()); ok {
		t.Error("Pop on closed, empty queue should return !ok")
	}
}

func TestQueue_PopHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := q.Pop(ctx); ok {
		t.Error("Pop on empty queue should return !ok when ctx expires")
	}
}

func TestQueue_PushWakesBlockedPop(t *testing.T) {
	q := NewQueue()
	result := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(context.Background())
		result <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(func() {})

	select {
	case ok := <-result:
		if !ok {
			t.Error("expected Pop to return the pushed task")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop was not woken by Push")
	}
}

func TestGoroutineID(t *testing.T) {
	main := GoroutineID()
	if main == 0 {
		t.Fatal("GoroutineID returned 0")
	}
	other := make(chan uint64)
	go func() { other <- GoroutineID() }()
	if id := <-other; id == main || id == 0 {
		t.Errorf("expected distinct non-zero IDs, got %d and %d", main, id)
	}
}

func TestLoop_PostRunsOnLoopGoroutine(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	if loop.IsCurrent() {
		t.Error("test goroutine must not be the loop")
	}

	onLoop := make(chan bool, 1)
	loop.Post(func() { onLoop <- loop.IsCurrent() })

	select {
	case ok := <-onLoop:
		if !ok {
			t.Error("IsCurrent() = false inside a posted task")
		}
	case <-time.After(time.Second):
		t.Fatal("posted task never ran")
	}
}

func TestLoop_PostFromManyGoroutinesPreservesPerSenderOrder(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()

	const senders, perSender = 8, 50
	var mu sync.Mutex
	seen := make(map[int][]int)

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(sender int) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				n := i
				loop.Post(func() {
					mu.Lock()
					seen[sender] = append(seen[sender], n)
					mu.Unlock()
				})
			}
		}(s)
	}
	wg.Wait()
	loop.Stop()

	for s := 0; s < senders; s++ {
		if len(seen[s]) != perSender {
			t.Fatalf("sender %d: got %d tasks, want %d", s, len(seen[s]), perSender)
		}
		for i, n := range seen[s] {
			if n != i {
				t.Fatalf("sender %d: task %d ran out of order (%d)", s, i, n)
			}
		}
	}
}

func TestLoop_StopRunsAcceptedTasksAndDropsLater(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()

	ran := 0
	block := make(chan struct{})
	loop.Post(func() { <-block })
	loop.Post(func() { ran++ })

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(block)
	}()
	loop.Stop()

	if ran != 1 {
		t.Errorf("task accepted before Stop ran %d times, want 1", ran)
	}

	loop.Post(func() { ran++ })
	if loop.Pending() != 0 {
		t.Error("Post after Stop should be dropped")
	}
	if ran != 1 {
		t.Error("task posted after Stop must not run")
	}
}

func TestLoop_PanickingTaskDoesNotStopLoop(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	loop.Post(func() { panic("boom") })

	ran := false
	if err := loop.Sync(func() { ran = true }); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !ran {
		t.Error("task after a panicking task did not run")
	}
}

func TestLoop_Sync(t *testing.T) {
	t.Run("not started", func(t *testing.T) {
		loop := NewLoop(nil)
		err := loop.Sync(func() {})
		if !errors.Is(err, errors.ErrSchedulerStopped) {
			t.Errorf("Sync on unstarted loop = %v, want ErrSchedulerStopped", err)
		}
	})

	t.Run("inline when already on loop", func(t *testing.T) {
		loop := NewLoop(nil)
		loop.Start()
		defer loop.Stop()

		nested := false
		err := loop.Sync(func() {
			// Would deadlock if Sync re-posted from the loop goroutine.
			_ = loop.Sync(func() { nested = true })
		})
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if !nested {
			t.Error("nested Sync did not run inline")
		}
	})

	t.Run("after stop", func(t *testing.T) {
		loop := NewLoop(nil)
		loop.Start()
		loop.Stop()
		if err := loop.Sync(func() {}); !errors.Is(err, errors.ErrSchedulerStopped) {
			t.Errorf("Sync after Stop = %v, want ErrSchedulerStopped", err)
		}
	})
}
