package hooks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newQueue(workers int) *AsyncQueue {
	return NewAsyncQueue(QueueConfig{Workers: workers}, nil)
}

func TestAsyncQueue_RunsTasks(t *testing.T) {
	queue := newQueue(4)
	queue.Start()
	defer queue.Shutdown()

	const taskCount = 20
	var executed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(taskCount)

	for i := 0; i < taskCount; i++ {
		err := queue.Enqueue(Task{
			Name: "count",
			Fn: func(ctx context.Context) error {
				defer wg.Done()
				executed.Add(1)
				return nil
			},
		})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if executed.Load() != taskCount {
			t.Errorf("expected %d tasks to run, got %d", taskCount, executed.Load())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("tasks did not finish, ran %d/%d", executed.Load(), taskCount)
	}
}

func TestAsyncQueue_SurvivesFailures(t *testing.T) {
	queue := newQueue(1)
	queue.Start()
	defer queue.Shutdown()

	tasks := []Task{
		{Name: "error", Fn: func(ctx context.Context) error { return errors.New("boom") }},
		{Name: "panic", Fn: func(ctx context.Context) error { panic("boom") }},
	}
	for _, task := range tasks {
		if err := queue.Enqueue(task); err != nil {
			t.Fatalf("Enqueue %s failed: %v", task.Name, err)
		}
	}

	executed := make(chan struct{})
	err := queue.Enqueue(Task{Name: "after", Fn: func(ctx context.Context) error {
		close(executed)
		return nil
	}})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Error("worker did not recover from a failing task")
	}
}

func TestAsyncQueue_Lifecycle(t *testing.T) {
	queue := newQueue(2)
	noop := Task{Name: "noop", Fn: func(ctx context.Context) error { return nil }}

	if err := queue.Enqueue(noop); !errors.Is(err, ErrQueueNotStarted) {
		t.Errorf("expected ErrQueueNotStarted, got %v", err)
	}

	queue.Start()
	queue.Start()
	if err := queue.Enqueue(noop); err != nil {
		t.Errorf("Enqueue after Start failed: %v", err)
	}

	queue.Shutdown()
	queue.Shutdown()
	if err := queue.Enqueue(noop); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestAsyncQueue_ShutdownDrains(t *testing.T) {
	queue := newQueue(2)
	queue.Start()

	const taskCount = 10
	var executed atomic.Int32
	for i := 0; i < taskCount; i++ {
		err := queue.Enqueue(Task{Name: "slow", Fn: func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			executed.Add(1)
			return nil
		}})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	queue.Shutdown()

	if executed.Load() != taskCount {
		t.Errorf("Shutdown returned before all tasks ran: %d/%d", executed.Load(), taskCount)
	}
	if queue.Pending() != 0 {
		t.Errorf("expected an empty buffer, got %d", queue.Pending())
	}
}

func TestAsyncQueue_StopCancels(t *testing.T) {
	queue := newQueue(1)
	queue.Start()

	started := make(chan struct{})
	err := queue.Enqueue(Task{Name: "long", Fn: func(ctx context.Context) error {
		close(started)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	<-started

	begin := time.Now()
	queue.Stop()
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("Stop took %v", elapsed)
	}

	noop := Task{Name: "noop", Fn: func(ctx context.Context) error { return nil }}
	if err := queue.Enqueue(noop); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed after Stop, got %v", err)
	}
}

func TestDefaultQueueConfig(t *testing.T) {
	queue := NewAsyncQueue(QueueConfig{}, nil)
	if queue.workers != 4 || cap(queue.tasks) != 100 {
		t.Errorf("expected 4 workers and 100 slots, got %d and %d", queue.workers, cap(queue.tasks))
	}
}
