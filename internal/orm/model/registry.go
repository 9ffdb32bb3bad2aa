// Package model is the mapping core: it owns the process-wide registry of
// mapped types, their key schemas and capability tables, and the instances
// that hold attribute values between the document form and typed access.
//
// The registry has a two-phase lifecycle. During bootstrap, models are
// defined, subclassed and given keys. Seal ends that phase; afterwards the
// schema is read-only except for ad hoc keys created by Instance.Set.
// All schema state is guarded by the registry's lock, so reads of a sealed
// registry from many goroutines are safe. Instances are not.
package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmap/internal/orm/coerce"
	"github.com/conduit-lang/docmap/internal/orm/document"
	"github.com/conduit-lang/docmap/internal/orm/schema"
)

var (
	// ErrSealed is returned when the schema is changed after bootstrap
	ErrSealed = errors.New("model registry is sealed")
	// ErrDuplicateModel is returned when a model name is already registered
	ErrDuplicateModel = errors.New("model already registered")
	// ErrUnknownModel is returned when a model name cannot be resolved
	ErrUnknownModel = errors.New("unknown model")
	// ErrNotEmbeddable is returned when embedding a non-embeddable model
	ErrNotEmbeddable = errors.New("model is not embeddable")
	// ErrInvalidKeyName is returned for blank key names
	ErrInvalidKeyName = errors.New("key name must not be blank")
	// ErrInvalidModelName is returned for blank model names
	ErrInvalidModelName = errors.New("model name must not be blank")
)

// Registry holds every mapped model and resolves discriminators to models
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
	sealed bool
	logger *zap.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry in the bootstrap phase
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		models: make(map[string]*Model),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ModelOption configures a model at definition time
type ModelOption func(*Model)

// Embeddable marks the model as storable inline inside other documents
func Embeddable() ModelOption {
	return func(m *Model) { m.embeddable = true }
}

// Define registers a root model. Every root model starts with an _id key of
// the identifier type.
func (r *Registry) Define(name string, opts ...ModelOption) (*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkNewModelLocked(name); err != nil {
		return nil, err
	}

	m := newModel(r, name)
	for _, opt := range opts {
		opt(m)
	}
	if _, err := m.declareLocked(schema.NewKey(schema.IDKey, coerce.ObjectID, schema.Options{})); err != nil {
		return nil, err
	}

	r.models[m.name] = m
	r.logger.Debug("model defined", zap.String("model", m.name), zap.Bool("embeddable", m.embeddable))
	return m, nil
}

// MustDefine is like Define but panics on error. It is meant for
// package-level bootstrap code.
func (r *Registry) MustDefine(name string, opts ...ModelOption) *Model {
	m, err := r.Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (r *Registry) checkNewModelLocked(name string) error {
	if r.sealed {
		return fmt.Errorf("define %s: %w", name, ErrSealed)
	}
	if name == "" {
		return ErrInvalidModelName
	}
	if _, exists := r.models[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, name)
	}
	return nil
}

// Lookup retrieves a model by name
func (r *Registry) Lookup(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Resolve maps a discriminator to a model
func (r *Registry) Resolve(discriminator string) (*Model, error) {
	if m, ok := r.Lookup(discriminator); ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, discriminator)
}

// Models returns all models sorted by name
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Count returns the number of registered models
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Seal ends the bootstrap phase
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	r.logger.Debug("model registry sealed", zap.Int("models", len(r.models)))
}

// Sealed reports whether the bootstrap phase has ended
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Logger returns the registry logger
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}

// Deserialize is a convenience for Deserialize(doc, expected) that looks up
// the expected model by name
func (r *Registry) Deserialize(doc *document.Document, expected string) (*Instance, error) {
	m, ok := r.Lookup(expected)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, expected)
	}
	return Deserialize(doc, m), nil
}

// Stats summarizes the registry contents
type Stats struct {
	Models       int
	Keys         int
	Associations int
	Rules        int
	Embeddable   int
}

// GetStats returns statistics about the registry
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	s.Models = len(r.models)
	for _, m := range r.models {
		s.Keys += m.keys.Len()
		s.Associations += len(m.associations)
		s.Rules += len(m.rules.Rules())
		if m.embeddable {
			s.Embeddable++
		}
	}
	return s
}
