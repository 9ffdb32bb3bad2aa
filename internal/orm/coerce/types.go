// Package coerce converts values between the loosely typed document form and
// the declared type of a key. Every conversion is total: input that cannot be
// interpreted as the target type maps to nil instead of failing, so documents
// with partially malformed data can still be loaded.
package coerce

import (
	"sort"
	"strings"
	"sync"
)

// Type is a declared key type. ToTyped turns raw input into the in-memory
// representation, ToDocument turns the in-memory value into document form.
// Both must be idempotent and must not fail.
type Type interface {
	Name() string
	ToTyped(v any) any
	ToDocument(v any) any
}

// Defaulter is implemented by types that can produce a fresh value on their
// own. Identifier keys whose type is a Defaulter are filled automatically
// when a new instance is built without one.
type Defaulter interface {
	Generate() any
}

// Built-in types
var (
	String   Type = stringType{}
	Integer  Type = integerType{}
	Float    Type = floatType{}
	Boolean  Type = booleanType{}
	Time     Type = timeType{}
	Date     Type = dateType{}
	Array    Type = arrayType{}
	Hash     Type = hashType{}
	Binary   Type = binaryType{}
	ObjectID Type = objectIDType{}
	Any      Type = anyType{}
)

var (
	typesMu sync.RWMutex
	types   = map[string]Type{}
)

func init() {
	for _, t := range []Type{String, Integer, Float, Boolean, Time, Date, Array, Hash, Binary, ObjectID, Any} {
		types[t.Name()] = t
	}
	// aliases used by schema files
	types["int"] = Integer
	types["bool"] = Boolean
	types["objectid"] = ObjectID
	types["id"] = ObjectID
}

// Register makes a custom type available to Lookup under its name.
// Registering an existing name replaces it.
func Register(t Type) {
	typesMu.Lock()
	defer typesMu.Unlock()
	types[strings.ToLower(t.Name())] = t
}

// Lookup finds a type by name, case-insensitively
func Lookup(name string) (Type, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	t, ok := types[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Names returns all registered type names, sorted
func Names() []string {
	typesMu.RLock()
	defer typesMu.RUnlock()
	names := make([]string, 0, len(types))
	for n := range types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ToTyped converts raw to the in-memory form of t. A nil type leaves the
// value untouched. A panicking custom type yields nil.
func ToTyped(raw any, t Type) (out any) {
	if t == nil {
		return raw
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()
	return t.ToTyped(raw)
}

// ToDocument converts typed to the document form of t
func ToDocument(typed any, t Type) (out any) {
	if t == nil {
		return typed
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()
	return t.ToDocument(typed)
}

// CanGenerate reports whether t produces its own values
func CanGenerate(t Type) bool {
	_, ok := t.(Defaulter)
	return ok
}

// Describe returns a printable name for t
func Describe(t Type) string {
	if t == nil {
		return "nil"
	}
	return t.Name()
}

type anyType struct{}

func (anyType) Name() string         { return "any" }
func (anyType) ToTyped(v any) any    { return v }
func (anyType) ToDocument(v any) any { return v }
