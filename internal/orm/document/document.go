// Package document provides the untyped, order-preserving document form that
// mapped instances are serialized to and loaded from. A Document is what the
// persistence layer reads and writes; its values are limited to nil, bool,
// int64, float64, string, time.Time, []any, Document, []byte and identifiers.
package document

import (
	"sort"
)

// Reserved field names
const (
	IDField   = "_id"
	TypeField = "_type"
)

// Document is a string-keyed map that remembers insertion order.
// The zero value is an empty document ready to use.
type Document struct {
	keys   []string
	values map[string]any
}

// New creates an empty document
func New() Document {
	return Document{values: make(map[string]any)}
}

// FromMap builds a document from a plain map. Keys are sorted so the result
// is deterministic; nested maps are converted as well.
func FromMap(m map[string]any) Document {
	d := New()
	if m == nil {
		return d
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		d.Set(k, normalize(m[k]))
	}
	return d
}

func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return FromMap(val)
	case *Document:
		if val == nil {
			return nil
		}
		return *val
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// Set stores value under key. Existing keys keep their position.
func (d *Document) Set(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value stored under key
func (d Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present, including keys holding nil
func (d Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Delete removes key from the document
func (d *Document) Delete(key string) {
	if _, exists := d.values[key]; !exists {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order
func (d Document) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries
func (d Document) Len() int {
	return len(d.keys)
}

// Range calls fn for each entry in insertion order until fn returns false
func (d Document) Range(fn func(key string, value any) bool) {
	for _, k := range d.keys {
		if !fn(k, d.values[k]) {
			return
		}
	}
}

// Map returns a plain map copy. Nested documents are converted recursively.
func (d Document) Map() map[string]any {
	out := make(map[string]any, len(d.keys))
	for _, k := range d.keys {
		out[k] = plain(d.values[k])
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case Document:
		return val.Map()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of the document structure. Leaf values are shared.
func (d Document) Clone() Document {
	out := Document{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]any, len(d.values)),
	}
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// TypeName returns the discriminator value, or "" when absent or not a string
func (d Document) TypeName() string {
	v, ok := d.values[TypeField]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
