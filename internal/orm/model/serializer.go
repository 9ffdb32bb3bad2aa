package model

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/docmap/internal/orm/document"
)

// Serialize converts inst to its document form. Keys appear in declaration
// order, followed by the embedded associations that hold a value. Models that are part of a
// hierarchy always carry their _type discriminator.
func Serialize(inst *Instance) document.Document {
	doc := document.New()
	if inst == nil {
		return doc
	}

	m := inst.model
	for _, key := range m.Keys() {
		name := key.Name()
		value := key.ToDocument(inst.Get(name))
		if name == document.TypeField {
			if s, _ := value.(string); s == "" {
				value = m.name
			}
		}
		doc.Set(name, value)
	}

	for _, assoc := range m.Associations() {
		if assoc.IsSingular() {
			if child := inst.EmbeddedOne(assoc.name); child != nil {
				doc.Set(assoc.name, Serialize(child))
			}
			continue
		}

		children := inst.EmbeddedMany(assoc.name)
		if len(children) == 0 {
			continue
		}
		items := make([]interface{}, 0, len(children))
		for _, child := range children {
			items = append(items, Serialize(child))
		}
		doc.Set(assoc.name, items)
	}
	return doc
}

// Deserialize rebuilds an instance from doc. The _type discriminator selects
// expected or one of its descendants; a name that resolves to neither falls
// back to expected. A nil document yields nil.
func Deserialize(doc *document.Document, expected *Model) *Instance {
	if doc == nil || expected == nil {
		return nil
	}

	target := expected
	if name := doc.TypeName(); name != "" && name != expected.name {
		if m, ok := expected.registry.Lookup(name); ok && m.IsA(expected) {
			target = m
		} else {
			expected.registry.logger.Debug("discriminator not resolved, using expected model",
				zap.String("discriminator", name),
				zap.String("expected", expected.name))
		}
	}

	inst := target.Allocate()
	inst.LoadDocument(*doc)
	return inst
}

// FromDocument turns value into an instance of expected. Instances of
// expected or a descendant are returned unchanged; documents and maps are
// deserialized. Anything else yields nil.
func FromDocument(value interface{}, expected *Model) *Instance {
	switch v := value.(type) {
	case nil:
		return nil
	case *Instance:
		if v == nil || !v.model.IsA(expected) {
			return nil
		}
		return v
	case document.Document:
		return Deserialize(&v, expected)
	case *document.Document:
		return Deserialize(v, expected)
	case map[string]interface{}:
		doc := document.FromMap(v)
		return Deserialize(&doc, expected)
	default:
		return nil
	}
}
