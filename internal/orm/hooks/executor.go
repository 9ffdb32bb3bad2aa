package hooks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmap/internal/orm/model"
)

// ErrNoQueue is returned when an async hook runs on an executor without a
// queue
var ErrNoQueue = errors.New("async queue not configured")

// Executor runs registered hooks
type Executor struct {
	registry *Registry
	queue    *AsyncQueue
	logger   *zap.Logger
}

// NewExecutor creates an executor with an empty registry. queue may be nil
// when no async hooks are registered.
func NewExecutor(queue *AsyncQueue, logger *zap.Logger) *Executor {
	return NewExecutorWithRegistry(NewRegistry(), queue, logger)
}

// NewExecutorWithRegistry creates an executor over an existing registry
func NewExecutorWithRegistry(registry *Registry, queue *AsyncQueue, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, queue: queue, logger: logger}
}

// Register adds a synchronous hook to m at t
func (e *Executor) Register(m *model.Model, t Type, name string, fn Func) {
	e.registry.Register(m, t, &Hook{Name: name, Fn: fn})
}

// RegisterAsync adds an async hook to m at t
func (e *Executor) RegisterAsync(m *model.Model, t Type, name string, fn Func) {
	e.registry.Register(m, t, &Hook{Name: name, Fn: fn, Async: true})
}

// Registry returns the hook registry
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Run executes the hooks that apply to inst at t. Synchronous hooks run in
// order and the first error stops the run. Async hooks are queued with a
// copy of inst taken when they are reached.
func (e *Executor) Run(ctx context.Context, t Type, inst *model.Instance) error {
	m := inst.Model()
	hooks := e.registry.For(m, t)
	if len(hooks) == 0 {
		return nil
	}

	hookCtx := NewContext(ctx, t, m)
	for _, hook := range hooks {
		if hook.Async {
			if err := e.enqueue(t, hook, inst); err != nil {
				e.logger.Warn("failed to enqueue async hook",
					zap.String("hook", hook.Name),
					zap.Stringer("type", t),
					zap.Error(err))
			}
			continue
		}

		if err := hook.Fn(hookCtx, inst); err != nil {
			return fmt.Errorf("%s hook %s on %s failed: %w", t, hook.Name, m.Name(), err)
		}
	}
	return nil
}

// enqueue schedules hook against a detached copy of inst
func (e *Executor) enqueue(t Type, hook *Hook, inst *model.Instance) error {
	if e.queue == nil {
		return ErrNoQueue
	}

	m := inst.Model()
	doc := model.Serialize(inst)
	snapshot := model.Deserialize(&doc, m)

	return e.queue.Enqueue(Task{
		Name: fmt.Sprintf("%s:%s", t, hook.Name),
		Fn: func(ctx context.Context) error {
			return hook.Fn(NewContext(ctx, t, m), snapshot)
		},
	})
}
