// Package validation derives validation rules from key declarations and
// provides a reference collaborator that records and executes them.
package validation

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/conduit-lang/docmap/internal/orm/coerce"
	"github.com/conduit-lang/docmap/internal/orm/schema"
)

// Collaborator receives rule registrations. Bind calls it; it never
// evaluates anything itself.
type Collaborator interface {
	RegisterPresence(field string)
	RegisterUniqueness(field string)
	RegisterNumeric(field string, integerOnly bool)
	RegisterFormat(field string, pattern *regexp.Regexp)
	RegisterInclusion(field string, set []interface{})
	RegisterExclusion(field string, set []interface{})
	RegisterLength(field string, policy LengthOptions)
}

// Range is an inclusive length range
type Range struct {
	Min int
	Max int
}

// LengthOptions is the structured length policy. Nil bounds are unchecked.
type LengthOptions struct {
	Minimum  *int
	Maximum  *int
	Is       *int
	Within   *Range
	AllowNil bool
	Message  string
}

// Bind registers the rules implied by key's options on c
func Bind(c Collaborator, key *schema.Key) error {
	opts := key.Options()
	field := key.Name()

	// derive everything that can fail before registering anything
	var pattern *regexp.Regexp
	if opts.Format != nil {
		p, err := formatPattern(opts.Format)
		if err != nil {
			return fmt.Errorf("key %s: %w", field, err)
		}
		pattern = p
	}

	var length *LengthOptions
	if opts.Length != nil {
		policy, err := LengthPolicy(opts.Length)
		if err != nil {
			return fmt.Errorf("key %s: %w", field, err)
		}
		length = &policy
	}

	if opts.Required {
		c.RegisterPresence(field)
	}
	if opts.Unique {
		c.RegisterUniqueness(field)
	}
	if opts.Numeric {
		c.RegisterNumeric(field, key.Type() == coerce.Integer)
	}
	if pattern != nil {
		c.RegisterFormat(field, pattern)
	}
	if len(opts.In) > 0 {
		c.RegisterInclusion(field, opts.In)
	}
	if len(opts.NotIn) > 0 {
		c.RegisterExclusion(field, opts.NotIn)
	}
	if length != nil {
		c.RegisterLength(field, *length)
	}

	return nil
}

// LengthPolicy maps a length option to a policy: an integer bound n means
// {Minimum: 0, Maximum: n}, a Range means within that range, and
// LengthOptions are used verbatim.
func LengthPolicy(option interface{}) (LengthOptions, error) {
	switch v := option.(type) {
	case LengthOptions:
		return v, nil
	case *LengthOptions:
		if v == nil {
			break
		}
		return *v, nil
	case Range:
		return rangePolicy(v)
	case *Range:
		if v == nil {
			break
		}
		return rangePolicy(*v)
	}

	rv := reflect.ValueOf(option)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return boundPolicy(int(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return boundPolicy(int(rv.Uint()))
	}

	return LengthOptions{}, fmt.Errorf("%w: %T", ErrInvalidLengthOption, option)
}

func boundPolicy(n int) (LengthOptions, error) {
	if n < 0 {
		return LengthOptions{}, fmt.Errorf("%w: negative bound %d", ErrInvalidLengthOption, n)
	}
	return LengthOptions{Minimum: intPtr(0), Maximum: intPtr(n)}, nil
}

func rangePolicy(r Range) (LengthOptions, error) {
	if r.Min < 0 || r.Max < r.Min {
		return LengthOptions{}, fmt.Errorf("%w: range %d..%d", ErrInvalidLengthOption, r.Min, r.Max)
	}
	return LengthOptions{Within: &Range{Min: r.Min, Max: r.Max}}, nil
}

func formatPattern(format interface{}) (*regexp.Regexp, error) {
	switch f := format.(type) {
	case *regexp.Regexp:
		if f == nil {
			return nil, ErrInvalidFormatOption
		}
		return f, nil
	case string:
		p, err := regexp.Compile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormatOption, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidFormatOption, format)
	}
}

func intPtr(n int) *int { return &n }
