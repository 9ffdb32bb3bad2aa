package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmap/internal/orm/coerce"
	"github.com/conduit-lang/docmap/internal/orm/document"
	"github.com/conduit-lang/docmap/internal/orm/schema"
	"github.com/conduit-lang/docmap/internal/orm/validation"
)

// Model is a mapped type: its keys, capability table, embedded associations
// and validation rules. Models form single-inheritance hierarchies through
// Subclass; a descendant's keys are always a superset of its ancestors'.
//
// Embeddable models also act as key types (they implement coerce.Type), so
// a key can hold a nested instance.
type Model struct {
	name       string
	registry   *Registry
	parent     *Model
	children   []*Model
	embeddable bool

	keys         *schema.KeySet
	accessors    map[string]Accessor
	writers      map[string]WriterFunc
	associations []*Association

	rules         *validation.RuleSet
	collaborators []validation.Collaborator
	// collaborators[:inherited] came from the parent at Subclass time
	inherited int
}

func newModel(r *Registry, name string) *Model {
	return &Model{
		name:      name,
		registry:  r,
		keys:      schema.NewKeySet(),
		accessors: make(map[string]Accessor),
		writers:   make(map[string]WriterFunc),
		rules:     validation.NewRuleSet(),
	}
}

// Name returns the model name, which is also its discriminator
func (m *Model) Name() string { return m.name }

// Registry returns the owning registry
func (m *Model) Registry() *Registry { return m.registry }

// Parent returns the model this one was subclassed from, or nil
func (m *Model) Parent() *Model { return m.parent }

// IsEmbeddable reports whether instances can be stored inline
func (m *Model) IsEmbeddable() bool { return m.embeddable }

// Children returns the direct subclasses
func (m *Model) Children() []*Model {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	out := make([]*Model, len(m.children))
	copy(out, m.children)
	return out
}

// Root returns the top of the model's hierarchy
func (m *Model) Root() *Model {
	root := m
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// IsA reports whether m is other or descends from it
func (m *Model) IsA(other *Model) bool {
	for cur := m; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Subclass creates a model that inherits every key, capability, association
// and rule m has right now. Keys declared on m later are propagated to it.
// The hierarchy gains a _type discriminator key the first time it is
// subclassed.
func (m *Model) Subclass(name string, opts ...ModelOption) (*Model, error) {
	r := m.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkNewModelLocked(name); err != nil {
		return nil, err
	}

	if !m.keys.Has(document.TypeField) {
		if _, err := m.Root().declareLocked(schema.NewKey(document.TypeField, coerce.String, schema.Options{})); err != nil {
			return nil, err
		}
	}

	child := &Model{
		name:          name,
		registry:      r,
		parent:        m,
		embeddable:    m.embeddable,
		keys:          m.keys.Clone(),
		accessors:     make(map[string]Accessor, len(m.accessors)),
		writers:       make(map[string]WriterFunc, len(m.writers)),
		associations:  append([]*Association(nil), m.associations...),
		rules:         m.rules.Clone(),
		collaborators: append([]validation.Collaborator(nil), m.collaborators...),
		inherited:     len(m.collaborators),
	}
	for k, v := range m.accessors {
		child.accessors[k] = v
	}
	for k, v := range m.writers {
		child.writers[k] = v
	}
	for _, opt := range opts {
		opt(child)
	}

	m.children = append(m.children, child)
	r.models[name] = child
	r.logger.Debug("model subclassed",
		zap.String("model", name),
		zap.String("parent", m.name),
		zap.Int("inherited_keys", child.keys.Len()))
	return child, nil
}

// MustSubclass is like Subclass but panics on error
func (m *Model) MustSubclass(name string, opts ...ModelOption) *Model {
	child, err := m.Subclass(name, opts...)
	if err != nil {
		panic(err)
	}
	return child
}

// DeclareKey adds or replaces a key on m and every existing descendant.
// Accessors are synthesized for accessor-safe names and validation rules
// are bound from the options. Only option misconfiguration and declaring
// on a sealed registry fail.
func (m *Model) DeclareKey(name string, typ coerce.Type, opts schema.Options) (*schema.Key, error) {
	key := schema.NewKey(name, typ, opts)
	if key.Name() == "" {
		return nil, fmt.Errorf("model %s: %w", m.name, ErrInvalidKeyName)
	}
	// surface option errors before anything is registered anywhere
	if err := validation.Bind(validation.NewRuleSet(), key); err != nil {
		return nil, fmt.Errorf("model %s: %w", m.name, err)
	}

	r := m.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, fmt.Errorf("declare %s.%s: %w", m.name, key.Name(), ErrSealed)
	}
	return m.declareLocked(key)
}

// MustDeclareKey is like DeclareKey but panics on error
func (m *Model) MustDeclareKey(name string, typ coerce.Type, opts schema.Options) *schema.Key {
	key, err := m.DeclareKey(name, typ, opts)
	if err != nil {
		panic(err)
	}
	return key
}

// Key declares a key without options
func (m *Model) Key(name string, typ coerce.Type) *schema.Key {
	return m.MustDeclareKey(name, typ, schema.Options{})
}

// declareLocked stores key on m and its descendants. The caller holds the
// registry write lock.
func (m *Model) declareLocked(key *schema.Key) (*schema.Key, error) {
	return m.declare(key, m.collaborators)
}

// declare stores key on m, binds it to bind, and propagates it. Descendants
// bind only the collaborators they added themselves; inherited ones already
// saw the key through the ancestor.
func (m *Model) declare(key *schema.Key, bind []validation.Collaborator) (*schema.Key, error) {
	m.keys.Put(key)
	m.synthesize(key)

	m.rules.Forget(key.Name())
	if err := validation.Bind(m.rules, key); err != nil {
		return nil, fmt.Errorf("model %s: %w", m.name, err)
	}
	for _, c := range bind {
		if err := validation.Bind(c, key); err != nil {
			return nil, fmt.Errorf("model %s: %w", m.name, err)
		}
	}

	m.registry.logger.Debug("key declared",
		zap.String("model", m.name),
		zap.String("key", key.Name()),
		zap.String("type", coerce.Describe(key.Type())),
		zap.Bool("accessors", key.HasAccessors()))

	for _, child := range m.children {
		if _, err := child.declare(key, child.collaborators[child.inherited:]); err != nil {
			return nil, err
		}
	}
	return key, nil
}

// declareDynamic declares an untyped key for an attribute written without
// a prior declaration. It is allowed after Seal.
func (m *Model) declareDynamic(name string) {
	r := m.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.keys.Has(name) {
		return
	}
	if _, hasWriter := m.writers[name]; hasWriter {
		return
	}
	r.logger.Debug("ad hoc key", zap.String("model", m.name), zap.String("key", name))
	// untyped keys carry no options, so binding cannot fail
	_, _ = m.declareLocked(schema.NewKey(name, coerce.Any, schema.Options{}))
}

// Lookup returns the key registered under name
func (m *Model) Lookup(name string) (*schema.Key, bool) {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	return m.keys.Lookup(name)
}

// HasKey returns true if the model declares a key named name
func (m *Model) HasKey(name string) bool {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	return m.keys.Has(name)
}

// Keys returns the keys in declaration order
func (m *Model) Keys() []*schema.Key {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	return m.keys.All()
}

// Rules returns the validation rules bound to the model
func (m *Model) Rules() *validation.RuleSet {
	return m.rules
}

// AddCollaborator attaches an external validation collaborator. Every key
// already declared is bound to it immediately, and every key declared later
// as well. Descendants created afterwards inherit it.
func (m *Model) AddCollaborator(c validation.Collaborator) error {
	r := m.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range m.keys.All() {
		if err := validation.Bind(c, key); err != nil {
			return fmt.Errorf("model %s: %w", m.name, err)
		}
	}
	m.collaborators = append(m.collaborators, c)
	return nil
}

// ToTyped implements coerce.Type for embeddable models
func (m *Model) ToTyped(v interface{}) interface{} {
	inst := FromDocument(v, m)
	if inst == nil {
		return nil
	}
	return inst
}

// ToDocument implements coerce.Type for embeddable models
func (m *Model) ToDocument(v interface{}) interface{} {
	inst := FromDocument(v, m)
	if inst == nil {
		return nil
	}
	return Serialize(inst)
}

// String returns the model name
func (m *Model) String() string {
	return m.name
}
