package model

import (
	"github.com/conduit-lang/docmap/internal/orm/schema"
	"github.com/conduit-lang/docmap/internal/orm/validation"
)

// WriterFunc is a custom attribute writer. It receives values for its name
// from Assign and LoadDocument in place of the default typed write.
type WriterFunc func(inst *Instance, value interface{})

// Accessor is the synthesized capability set for one key
type Accessor struct {
	Name    string
	Read    func(inst *Instance) interface{}
	ReadRaw func(inst *Instance) interface{}
	Write   func(inst *Instance, value interface{})
	Present func(inst *Instance) bool
}

// synthesize installs (or replaces) the accessor for key. Names that cannot
// be used as identifiers get none; the key stays reachable through
// Instance.Get and Instance.Set.
func (m *Model) synthesize(key *schema.Key) {
	name := key.Name()
	if !key.HasAccessors() {
		delete(m.accessors, name)
		return
	}
	m.accessors[name] = Accessor{
		Name: name,
		Read: func(inst *Instance) interface{} {
			return inst.readKey(name)
		},
		ReadRaw: func(inst *Instance) interface{} {
			return inst.raw[name]
		},
		Write: func(inst *Instance, value interface{}) {
			inst.writeKey(name, value)
		},
		Present: func(inst *Instance) bool {
			return !validation.IsBlank(inst.readKey(name))
		},
	}
}

// Accessor returns the synthesized accessor for name
func (m *Model) Accessor(name string) (Accessor, bool) {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	acc, ok := m.accessors[schema.Canonical(name)]
	return acc, ok
}

// Accessors returns the names that have synthesized accessors, in key order
func (m *Model) Accessors() []string {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()

	var names []string
	for _, name := range m.keys.Names() {
		if _, ok := m.accessors[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// DefineWriter installs a custom writer for name on m and its descendants.
// A writer without a key of the same name takes over that name when
// documents are loaded.
func (m *Model) DefineWriter(name string, fn WriterFunc) error {
	name = schema.Canonical(name)
	if name == "" {
		return ErrInvalidKeyName
	}

	r := m.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	m.defineWriterLocked(name, fn)
	return nil
}

func (m *Model) defineWriterLocked(name string, fn WriterFunc) {
	m.writers[name] = fn
	for _, child := range m.children {
		child.defineWriterLocked(name, fn)
	}
}

func (m *Model) writer(name string) (WriterFunc, bool) {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	fn, ok := m.writers[name]
	return fn, ok
}

func (m *Model) accessor(name string) (Accessor, bool) {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	acc, ok := m.accessors[name]
	return acc, ok
}
