package model

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/conduit-lang/docmap/internal/orm/document"
	"github.com/conduit-lang/docmap/internal/orm/schema"
	"github.com/conduit-lang/docmap/internal/orm/tracking"
	"github.com/conduit-lang/docmap/internal/orm/validation"
)

// ErrUnknownAssociation is returned when an embedded slot name is not declared
var ErrUnknownAssociation = errors.New("unknown association")

// Instance holds the attribute values of one mapped document. Typed values
// are derived from stored values on every read; the raw values are kept as
// they were written. An Instance is owned by one goroutine.
type Instance struct {
	model    *Model
	attrs    map[string]interface{}
	raw      map[string]interface{}
	embedded map[string]interface{}

	isNew     bool
	destroyed bool

	// parent is a back-reference to the instance this one is embedded in.
	// It is set when the owner reads the embedding key or association.
	parent *Instance

	snapshot document.Document
}

// Allocate creates an empty instance with no defaults applied
func (m *Model) Allocate() *Instance {
	return &Instance{
		model:    m,
		attrs:    make(map[string]interface{}),
		raw:      make(map[string]interface{}),
		embedded: make(map[string]interface{}),
		snapshot: document.New(),
	}
}

// New builds a new instance from attrs. A fresh identifier is generated
// unless attrs carries an _id entry, even a nil one.
func (m *Model) New(attrs map[string]interface{}) *Instance {
	inst := m.Allocate()
	inst.isNew = true

	if !hasCanonical(attrs, schema.IDKey) {
		if key, ok := m.Lookup(schema.IDKey); ok {
			if id, ok := key.Generate(); ok {
				inst.writeKey(schema.IDKey, id)
			}
		}
	}
	if m.HasKey(document.TypeField) {
		inst.writeKey(document.TypeField, m.name)
	}

	inst.Assign(attrs)
	return inst
}

// Load rebuilds an instance from a stored document. The document's _type
// may select a descendant of m.
func (m *Model) Load(doc document.Document) *Instance {
	return Deserialize(&doc, m)
}

// Validate runs the model's bound rules against inst
func (m *Model) Validate(ctx context.Context, inst *Instance) error {
	return m.rules.Validate(ctx, inst)
}

func hasCanonical(attrs map[string]interface{}, name string) bool {
	for k := range attrs {
		if schema.Canonical(k) == name {
			return true
		}
	}
	return false
}

// Model returns the instance's model
func (i *Instance) Model() *Model { return i.model }

// Get returns the typed value of name
func (i *Instance) Get(name string) interface{} {
	name = schema.Canonical(name)
	if acc, ok := i.model.accessor(name); ok {
		return acc.Read(i)
	}
	if _, ok := i.model.Association(name); ok {
		return i.Embedded(name)
	}
	return i.readKey(name)
}

// RawGet returns the value of name as it was last written, before coercion
func (i *Instance) RawGet(name string) interface{} {
	name = schema.Canonical(name)
	if acc, ok := i.model.accessor(name); ok {
		return acc.ReadRaw(i)
	}
	return i.raw[name]
}

// Set writes value to name, declaring an untyped key first when the model
// has neither a key nor a writer for it
func (i *Instance) Set(name string, value interface{}) {
	name = schema.Canonical(name)
	if name == "" {
		return
	}

	if acc, ok := i.model.accessor(name); ok {
		acc.Write(i, value)
		return
	}
	if !i.model.HasKey(name) {
		if fn, ok := i.model.writer(name); ok {
			fn(i, value)
			return
		}
		i.model.declareDynamic(name)
	}
	i.writeKey(name, value)
}

// Present reports whether name holds a non-blank value
func (i *Instance) Present(name string) bool {
	name = schema.Canonical(name)
	if acc, ok := i.model.accessor(name); ok {
		return acc.Present(i)
	}
	return !validation.IsBlank(i.Get(name))
}

// Assign writes every entry of attrs, in name order. Custom writers take
// precedence over the default typed write.
func (i *Instance) Assign(attrs map[string]interface{}) {
	if len(attrs) == 0 {
		return
	}

	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, k := range names {
		name := schema.Canonical(k)
		if fn, ok := i.model.writer(name); ok {
			fn(i, attrs[k])
			continue
		}
		i.Set(name, attrs[k])
	}
}

// LoadDocument populates the instance from a stored document and marks it
// persisted. Custom writers receive entries that have no declared key.
func (i *Instance) LoadDocument(doc document.Document) {
	i.isNew = false

	doc.Range(func(name string, value interface{}) bool {
		name = schema.Canonical(name)
		if fn, ok := i.model.writer(name); ok && !i.model.HasKey(name) {
			fn(i, value)
		} else {
			i.Set(name, value)
		}
		return true
	})

	i.snapshot = Serialize(i)
}

func (i *Instance) readKey(name string) interface{} {
	key, ok := i.model.Lookup(name)
	if !ok {
		return i.attrs[name]
	}

	value := key.Get(i.attrs[name])
	if value != nil {
		i.attrs[name] = value
	}
	i.adopt(value)
	return value
}

func (i *Instance) writeKey(name string, value interface{}) {
	key, ok := i.model.Lookup(name)
	if !ok {
		i.model.declareDynamic(name)
		key, _ = i.model.Lookup(name)
	}
	i.raw[name] = value
	i.attrs[name] = key.Set(value)
}

// adopt points embedded instances found in value back at i
func (i *Instance) adopt(value interface{}) {
	switch v := value.(type) {
	case *Instance:
		if v != nil && v != i {
			v.parent = i
		}
	case []*Instance:
		for _, child := range v {
			i.adopt(child)
		}
	case []interface{}:
		for _, item := range v {
			if child, ok := item.(*Instance); ok {
				i.adopt(child)
			}
		}
	}
}

// Embedded returns the value held in an embedded association slot: an
// *Instance for singular associations, []*Instance for plural ones.
func (i *Instance) Embedded(name string) interface{} {
	name = schema.Canonical(name)
	assoc, ok := i.model.Association(name)
	if !ok {
		return nil
	}

	value := i.embedded[name]
	if !assoc.IsSingular() && value == nil {
		value = []*Instance{}
		i.embedded[name] = value
	}
	i.adopt(value)
	return value
}

// EmbeddedOne returns the instance held in a singular association
func (i *Instance) EmbeddedOne(name string) *Instance {
	child, _ := i.Embedded(name).(*Instance)
	return child
}

// EmbeddedMany returns the instances held in a plural association
func (i *Instance) EmbeddedMany(name string) []*Instance {
	children, _ := i.Embedded(name).([]*Instance)
	return children
}

// SetEmbedded replaces the contents of an embedded association slot.
// Documents and maps are loaded as instances of the association's target.
func (i *Instance) SetEmbedded(name string, value interface{}) error {
	name = schema.Canonical(name)
	assoc, ok := i.model.Association(name)
	if !ok {
		return fmt.Errorf("%s.%s: %w", i.model.name, name, ErrUnknownAssociation)
	}

	if assoc.IsSingular() {
		if child := FromDocument(value, assoc.target); child != nil {
			i.embedded[name] = child
		} else {
			delete(i.embedded, name)
		}
		return nil
	}

	var children []*Instance
	switch v := value.(type) {
	case nil:
	case []*Instance:
		for _, item := range v {
			if child := FromDocument(item, assoc.target); child != nil {
				children = append(children, child)
			}
		}
	case []document.Document:
		for _, item := range v {
			if child := FromDocument(item, assoc.target); child != nil {
				children = append(children, child)
			}
		}
	case []map[string]interface{}:
		for _, item := range v {
			if child := FromDocument(item, assoc.target); child != nil {
				children = append(children, child)
			}
		}
	case []interface{}:
		for _, item := range v {
			if child := FromDocument(item, assoc.target); child != nil {
				children = append(children, child)
			}
		}
	default:
		if child := FromDocument(v, assoc.target); child != nil {
			children = append(children, child)
		}
	}
	if children == nil {
		children = []*Instance{}
	}
	i.embedded[name] = children
	return nil
}

// Parent returns the instance this one is embedded in, as of the owner's
// last read of the embedding key
func (i *Instance) Parent() *Instance { return i.parent }

// ID returns the typed identifier
func (i *Instance) ID() interface{} {
	return i.Get(schema.IDKey)
}

// IsNew reports whether the instance has never been loaded or persisted
func (i *Instance) IsNew() bool { return i.isNew }

// IsDestroyed reports whether Destroy was called
func (i *Instance) IsDestroyed() bool { return i.destroyed }

// IsPersisted reports whether the instance is stored and not destroyed
func (i *Instance) IsPersisted() bool { return !i.isNew && !i.destroyed }

// MarkPersisted records a successful save
func (i *Instance) MarkPersisted() {
	i.isNew = false
	i.snapshot = Serialize(i)
}

// Destroy marks the instance as removed from storage
func (i *Instance) Destroy() { i.destroyed = true }

// Attributes returns the typed value of every key
func (i *Instance) Attributes() map[string]interface{} {
	keys := i.model.Keys()
	out := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		out[key.Name()] = i.Get(key.Name())
	}
	return out
}

// Changes compares the instance with the document it was last loaded from
// or persisted as
func (i *Instance) Changes() *tracking.ChangeTracker {
	return tracking.NewChangeTracker(i.snapshot, Serialize(i))
}

// Changed reports whether name differs from its loaded or persisted value
func (i *Instance) Changed(name string) bool {
	return i.Changes().Changed(schema.Canonical(name))
}

// Validate runs the model's rules against the instance
func (i *Instance) Validate(ctx context.Context) error {
	return i.model.Validate(ctx, i)
}

// String returns a short description of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("%s(%v)", i.model.name, i.attrs[schema.IDKey])
}
