// Package schema provides the key descriptors that make up a mapped type's
// schema. A Key names a field, declares its type and carries the options
// that validation rules and indexes are derived from.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/conduit-lang/docmap/internal/orm/coerce"
)

// IDKey is the name of the identifier key present in every root model
const IDKey = "_id"

var accessorSafe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// Canonical normalizes a key name for lookup
func Canonical(name string) string {
	return strings.TrimSpace(name)
}

// IsAccessorSafe reports whether name can be bound to named accessors.
// It must start with a letter or underscore and contain only word characters.
func IsAccessorSafe(name string) bool {
	return accessorSafe.MatchString(name)
}

// Options holds the recognized per-key declarations
type Options struct {
	Required bool
	Unique   bool
	Numeric  bool
	Index    bool
	Abstract bool

	// Format is a regular expression source string or *regexp.Regexp
	Format interface{}

	In    []interface{}
	NotIn []interface{}

	// Length is an int bound, a validation.Range or validation.LengthOptions
	Length interface{}

	// Default is a value or a func() interface{} evaluated on every read
	// of an unset key
	Default interface{}

	// Typecast is the element type for array keys
	Typecast coerce.Type
}

// Key describes one declared field of a mapped type. Keys are immutable
// once created; redeclaring a name builds a new Key.
type Key struct {
	name    string
	typ     coerce.Type
	options Options
}

// NewKey creates a key. A nil type declares an untyped key.
func NewKey(name string, typ coerce.Type, opts Options) *Key {
	if typ == nil {
		typ = coerce.Any
	}
	if opts.Typecast != nil && typ == coerce.Array {
		typ = coerce.ArrayOf(opts.Typecast)
	}
	return &Key{
		name:    Canonical(name),
		typ:     typ,
		options: opts,
	}
}

// Name returns the canonical key name
func (k *Key) Name() string { return k.name }

// Type returns the declared type
func (k *Key) Type() coerce.Type { return k.typ }

// Options returns a copy of the declared options
func (k *Key) Options() Options {
	opts := k.options
	opts.In = append([]interface{}(nil), k.options.In...)
	opts.NotIn = append([]interface{}(nil), k.options.NotIn...)
	return opts
}

// HasAccessors reports whether named accessors can be synthesized for the key
func (k *Key) HasAccessors() bool {
	return IsAccessorSafe(k.name)
}

// CanDefault reports whether the key's type generates its own values
func (k *Key) CanDefault() bool {
	return coerce.CanGenerate(k.typ)
}

// Generate returns a fresh value for keys whose type can produce one
func (k *Key) Generate() (interface{}, bool) {
	gen, ok := k.typ.(coerce.Defaulter)
	if !ok {
		return nil, false
	}
	return gen.Generate(), true
}

// Get turns a stored value into the value readers see. Unset keys read as
// their default, if any.
func (k *Key) Get(stored interface{}) interface{} {
	if stored == nil {
		return k.DefaultValue()
	}
	return coerce.ToTyped(stored, k.typ)
}

// Set coerces a value for storage
func (k *Key) Set(value interface{}) interface{} {
	return coerce.ToTyped(value, k.typ)
}

// ToDocument converts a typed value to document form
func (k *Key) ToDocument(value interface{}) interface{} {
	return coerce.ToDocument(value, k.typ)
}

// DefaultValue evaluates the Default option, coerced to the key type
func (k *Key) DefaultValue() interface{} {
	switch d := k.options.Default.(type) {
	case nil:
		return nil
	case func() interface{}:
		return coerce.ToTyped(d(), k.typ)
	default:
		return coerce.ToTyped(d, k.typ)
	}
}

// Flags lists the declared options in sorted order
func (k *Key) Flags() []string {
	var flags []string
	if k.options.Required {
		flags = append(flags, "required")
	}
	if k.options.Unique {
		flags = append(flags, "unique")
	}
	if k.options.Numeric {
		flags = append(flags, "numeric")
	}
	if k.options.Index {
		flags = append(flags, "index")
	}
	if k.options.Format != nil {
		flags = append(flags, fmt.Sprintf("format=%v", k.options.Format))
	}
	if len(k.options.In) > 0 {
		flags = append(flags, fmt.Sprintf("in=%v", k.options.In))
	}
	if len(k.options.NotIn) > 0 {
		flags = append(flags, fmt.Sprintf("not_in=%v", k.options.NotIn))
	}
	if k.options.Length != nil {
		flags = append(flags, fmt.Sprintf("length=%v", k.options.Length))
	}
	if k.options.Default != nil {
		flags = append(flags, "default")
	}
	sort.Strings(flags)
	return flags
}

// String returns a string representation of the key
func (k *Key) String() string {
	s := fmt.Sprintf("%s: %s", k.name, coerce.Describe(k.typ))
	if flags := k.Flags(); len(flags) > 0 {
		s += " [" + strings.Join(flags, ", ") + "]"
	}
	return s
}
