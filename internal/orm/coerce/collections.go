package coerce

import (
	"reflect"

	"github.com/conduit-lang/docmap/internal/orm/document"
)

type arrayType struct {
	elem Type
}

// ArrayOf returns an array type whose elements are coerced to elem
func ArrayOf(elem Type) Type {
	return arrayType{elem: elem}
}

func (t arrayType) Name() string {
	if t.elem == nil {
		return "array"
	}
	return "array<" + t.elem.Name() + ">"
}

// Elem returns the element type, or nil for untyped arrays
func (t arrayType) Elem() Type { return t.elem }

func (t arrayType) ToTyped(v any) any {
	items, ok := toSlice(v)
	if !ok {
		return nil
	}
	if t.elem == nil {
		return items
	}
	for i, item := range items {
		items[i] = ToTyped(item, t.elem)
	}
	return items
}

func (t arrayType) ToDocument(v any) any {
	items, ok := toSlice(v)
	if !ok {
		return nil
	}
	if t.elem == nil {
		return items
	}
	for i, item := range items {
		items[i] = ToDocument(item, t.elem)
	}
	return items
}

// toSlice returns a fresh []any holding the elements of v. Scalars are
// wrapped in a one-element slice.
func toSlice(v any) ([]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []any:
		out := make([]any, len(val))
		copy(out, val)
		return out, true
	case []byte, string, document.Document, map[string]any:
		return []any{val}, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	case reflect.Map, reflect.Func, reflect.Chan:
		return nil, false
	default:
		return []any{v}, true
	}
}

type hashType struct{}

func (hashType) Name() string { return "hash" }

func (hashType) ToTyped(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case document.Document:
		return val
	case *document.Document:
		if val == nil {
			return nil
		}
		return *val
	case map[string]any:
		return document.FromMap(val)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return document.FromMap(m)
}

func (t hashType) ToDocument(v any) any { return t.ToTyped(v) }
