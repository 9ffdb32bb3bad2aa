package validation

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/conduit-lang/docmap/internal/orm/document"
)

// Validator defines the interface for field validators
type Validator interface {
	Validate(value interface{}) error
}

// PresenceValidator rejects blank values
type PresenceValidator struct{}

// Validate implements the Validator interface
func (v *PresenceValidator) Validate(value interface{}) error {
	if IsBlank(value) {
		return fmt.Errorf("can't be blank")
	}
	return nil
}

// NumericValidator checks that a value is a number, optionally an integer
type NumericValidator struct {
	IntegerOnly bool
}

// Validate implements the Validator interface
func (v *NumericValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	var f float64
	if i, ok := toInt64(value); ok {
		f = float64(i)
	} else if fv, ok := toFloat64(value); ok {
		f = fv
	} else {
		s, isStr := value.(string)
		if !isStr {
			return fmt.Errorf("is not a number")
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("is not a number")
		}
		f = parsed
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("is not a number")
	}
	if v.IntegerOnly && f != math.Trunc(f) {
		return fmt.Errorf("must be an integer")
	}
	return nil
}

// PatternValidator validates string values against a regex pattern
type PatternValidator struct {
	Pattern *regexp.Regexp
}

// Validate implements the Validator interface
func (v *PatternValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	strVal, ok := value.(string)
	if !ok {
		strVal = fmt.Sprint(value)
	}

	if !v.Pattern.MatchString(strVal) {
		return fmt.Errorf("is invalid")
	}

	return nil
}

// InclusionValidator checks that a value is one of Set
type InclusionValidator struct {
	Set []interface{}
}

// Validate implements the Validator interface
func (v *InclusionValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}
	if !contains(v.Set, value) {
		return fmt.Errorf("is not included in the list")
	}
	return nil
}

// ExclusionValidator checks that a value is not one of Set
type ExclusionValidator struct {
	Set []interface{}
}

// Validate implements the Validator interface
func (v *ExclusionValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}
	if contains(v.Set, value) {
		return fmt.Errorf("is reserved")
	}
	return nil
}

// LengthValidator validates the length of strings, arrays and documents
type LengthValidator struct {
	Options LengthOptions
}

// Validate implements the Validator interface
func (v *LengthValidator) Validate(value interface{}) error {
	if value == nil && v.Options.AllowNil {
		return nil
	}

	n, ok := lengthOf(value)
	if !ok {
		return v.fail("has an unmeasurable length")
	}

	opts := v.Options
	if opts.Is != nil && n != *opts.Is {
		return v.fail(fmt.Sprintf("is the wrong length (should be %d characters)", *opts.Is))
	}
	if opts.Within != nil {
		if n < opts.Within.Min {
			return v.fail(fmt.Sprintf("is too short (minimum is %d characters)", opts.Within.Min))
		}
		if n > opts.Within.Max {
			return v.fail(fmt.Sprintf("is too long (maximum is %d characters)", opts.Within.Max))
		}
	}
	if opts.Minimum != nil && n < *opts.Minimum {
		return v.fail(fmt.Sprintf("is too short (minimum is %d characters)", *opts.Minimum))
	}
	if opts.Maximum != nil && n > *opts.Maximum {
		return v.fail(fmt.Sprintf("is too long (maximum is %d characters)", *opts.Maximum))
	}
	return nil
}

func (v *LengthValidator) fail(msg string) error {
	if v.Options.Message != "" {
		return fmt.Errorf("%s", v.Options.Message)
	}
	return fmt.Errorf("%s", msg)
}

// IsBlank reports whether value is nil, false, a whitespace-only string or
// an empty collection
func IsBlank(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return strings.TrimSpace(v) == ""
	case document.Document:
		return v.Len() == 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func lengthOf(value interface{}) (int, bool) {
	switch v := value.(type) {
	case nil:
		return 0, true
	case string:
		return utf8.RuneCountInString(v), true
	case document.Document:
		return v.Len(), true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func contains(set []interface{}, value interface{}) bool {
	for _, candidate := range set {
		if equalValues(candidate, value) {
			return true
		}
	}
	return false
}

func equalValues(a, b interface{}) bool {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v interface{}) (float64, bool) {
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return toFloat64(v)
}

// Helper functions for type conversion

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
