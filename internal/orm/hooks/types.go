// Package hooks runs lifecycle callbacks around document store operations.
//
// Hooks are registered per model and apply to its subclasses too. For each
// operation, hooks of the root model run first, then those of each subclass
// down to the instance's own model, in registration order.
package hooks

import (
	"context"
	"sync"

	"github.com/conduit-lang/docmap/internal/orm/model"
)

// Type identifies a lifecycle point
type Type int

const (
	BeforeSave Type = iota
	AfterSave
	BeforeDestroy
	AfterDestroy
)

// String returns the lifecycle point as written in logs and errors
func (t Type) String() string {
	switch t {
	case BeforeSave:
		return "before_save"
	case AfterSave:
		return "after_save"
	case BeforeDestroy:
		return "before_destroy"
	case AfterDestroy:
		return "after_destroy"
	default:
		return "unknown"
	}
}

// Func is a hook body. A synchronous before-hook that returns an error
// aborts the operation.
type Func func(ctx *Context, inst *model.Instance) error

// Hook is a registered callback. Async hooks run on the executor's queue
// against a copy of the instance, and their errors are only logged.
type Hook struct {
	Name  string
	Fn    Func
	Async bool
}

// Registry holds hooks per model name and lifecycle point
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]map[Type][]*Hook
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]map[Type][]*Hook)}
}

// Register adds hook to m at t
func (r *Registry) Register(m *model.Model, t Type, hook *Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byType, ok := r.hooks[m.Name()]
	if !ok {
		byType = make(map[Type][]*Hook)
		r.hooks[m.Name()] = byType
	}
	byType[t] = append(byType[t], hook)
}

// For returns the hooks that apply to instances of m at t, inherited ones
// first
func (r *Registry) For(m *model.Model, t Type) []*Hook {
	var lineage []*model.Model
	for cur := m; cur != nil; cur = cur.Parent() {
		lineage = append(lineage, cur)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Hook
	for i := len(lineage) - 1; i >= 0; i-- {
		out = append(out, r.hooks[lineage[i].Name()][t]...)
	}
	return out
}

// Has reports whether any hook applies to m at t
func (r *Registry) Has(m *model.Model, t Type) bool {
	return len(r.For(m, t)) > 0
}

// Context is passed to every hook
type Context struct {
	context.Context
	hookType Type
	model    *model.Model
}

// NewContext creates a hook context for an operation on m
func NewContext(ctx context.Context, t Type, m *model.Model) *Context {
	return &Context{Context: ctx, hookType: t, model: m}
}

// Type returns the lifecycle point being run
func (c *Context) Type() Type { return c.hookType }

// Model returns the model of the instance the operation is on
func (c *Context) Model() *model.Model { return c.model }
