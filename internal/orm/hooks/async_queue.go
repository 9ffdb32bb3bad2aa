package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueNotStarted is returned when enqueueing before Start
	ErrQueueNotStarted = errors.New("async queue not started")
	// ErrQueueClosed is returned when enqueueing after Shutdown or Stop
	ErrQueueClosed = errors.New("async queue closed")
)

// Task is a unit of deferred work
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// QueueConfig sizes an AsyncQueue
type QueueConfig struct {
	Workers int
	Buffer  int
}

// DefaultQueueConfig returns a queue of 4 workers buffering 100 tasks
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{Workers: 4, Buffer: 100}
}

// AsyncQueue runs tasks on a fixed pool of workers. A failing or panicking
// task is logged and never stops its worker.
type AsyncQueue struct {
	tasks   chan Task
	workers int
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewAsyncQueue creates a stopped queue. Non-positive sizes fall back to
// DefaultQueueConfig.
func NewAsyncQueue(config QueueConfig, logger *zap.Logger) *AsyncQueue {
	defaults := DefaultQueueConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Buffer <= 0 {
		config.Buffer = defaults.Buffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncQueue{
		tasks:   make(chan Task, config.Buffer),
		workers: config.Workers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it again is a no-op.
func (q *AsyncQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(i)
	}
	q.started = true
}

func (q *AsyncQueue) work(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.run(id, task)
		}
	}
}

func (q *AsyncQueue) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("async task panicked",
				zap.Int("worker", id),
				zap.String("task", task.Name),
				zap.Any("panic", r))
		}
	}()

	if err := task.Fn(q.ctx); err != nil {
		q.logger.Warn("async task failed",
			zap.Int("worker", id),
			zap.String("task", task.Name),
			zap.Error(err))
	}
}

// Enqueue hands task to the workers, blocking while the buffer is full
func (q *AsyncQueue) Enqueue(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	switch {
	case !q.started:
		return fmt.Errorf("%w: %s", ErrQueueNotStarted, task.Name)
	case q.closed:
		return fmt.Errorf("%w: %s", ErrQueueClosed, task.Name)
	}

	select {
	case q.tasks <- task:
		return nil
	case <-q.ctx.Done():
		return fmt.Errorf("%w: %s", ErrQueueClosed, task.Name)
	}
}

// Pending returns the number of buffered tasks not yet picked up
func (q *AsyncQueue) Pending() int {
	return len(q.tasks)
}

// Shutdown stops accepting tasks and waits for the buffered ones to finish
func (q *AsyncQueue) Shutdown() {
	q.mu.Lock()
	if !q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.tasks)
	q.wg.Wait()
}

// Stop cancels running tasks and returns once the workers have exited.
// Buffered tasks are dropped.
func (q *AsyncQueue) Stop() {
	q.cancel()

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
}
