package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmap/internal/orm/schema"
)

// Association is an embedded relation: instances of Target stored inline in
// the owner's document under Name
type Association struct {
	name   string
	target *Model
	many   bool
}

// Name returns the document field the association is stored under
func (a *Association) Name() string { return a.name }

// Target returns the embedded model
func (a *Association) Target() *Model { return a.target }

// IsSingular reports whether the association holds one instance
func (a *Association) IsSingular() bool { return !a.many }

// String returns a string representation of the association
func (a *Association) String() string {
	if a.many {
		return fmt.Sprintf("%s: embeds many %s", a.name, a.target.name)
	}
	return fmt.Sprintf("%s: embeds one %s", a.name, a.target.name)
}

// EmbedOne declares a singular embedded association
func (m *Model) EmbedOne(name string, target *Model) (*Association, error) {
	return m.embed(name, target, false)
}

// EmbedMany declares a plural embedded association
func (m *Model) EmbedMany(name string, target *Model) (*Association, error) {
	return m.embed(name, target, true)
}

func (m *Model) embed(name string, target *Model, many bool) (*Association, error) {
	name = schema.Canonical(name)
	if name == "" {
		return nil, fmt.Errorf("model %s: %w", m.name, ErrInvalidKeyName)
	}
	if target == nil || !target.embeddable {
		return nil, fmt.Errorf("model %s embeds %s: %w", m.name, name, ErrNotEmbeddable)
	}

	r := m.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, fmt.Errorf("embed %s.%s: %w", m.name, name, ErrSealed)
	}

	assoc := &Association{name: name, target: target, many: many}
	m.embedLocked(assoc)
	r.logger.Debug("association declared",
		zap.String("model", m.name),
		zap.String("association", name),
		zap.String("target", target.name),
		zap.Bool("many", many))
	return assoc, nil
}

func (m *Model) embedLocked(assoc *Association) {
	replaced := false
	for i, existing := range m.associations {
		if existing.name == assoc.name {
			m.associations[i] = assoc
			replaced = true
			break
		}
	}
	if !replaced {
		m.associations = append(m.associations, assoc)
	}

	m.writers[assoc.name] = func(inst *Instance, value interface{}) {
		inst.SetEmbedded(assoc.name, value)
	}

	for _, child := range m.children {
		child.embedLocked(assoc)
	}
}

// Associations returns the embedded associations in declaration order
func (m *Model) Associations() []*Association {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	return append([]*Association(nil), m.associations...)
}

// Association returns the embedded association stored under name
func (m *Model) Association(name string) (*Association, bool) {
	name = schema.Canonical(name)
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	for _, a := range m.associations {
		if a.name == name {
			return a, true
		}
	}
	return nil, false
}
