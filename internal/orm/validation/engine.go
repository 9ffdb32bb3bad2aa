package validation

import (
	"context"
	"fmt"
	"regexp"
	"sync"
)

// RuleKind identifies a rule family
type RuleKind int

const (
	RulePresence RuleKind = iota
	RuleUniqueness
	RuleNumeric
	RuleFormat
	RuleInclusion
	RuleExclusion
	RuleLength
)

// String returns the string representation of the rule kind
func (k RuleKind) String() string {
	switch k {
	case RulePresence:
		return "presence"
	case RuleUniqueness:
		return "uniqueness"
	case RuleNumeric:
		return "numeric"
	case RuleFormat:
		return "format"
	case RuleInclusion:
		return "inclusion"
	case RuleExclusion:
		return "exclusion"
	case RuleLength:
		return "length"
	default:
		return "unknown"
	}
}

// Rule is one registered rule attached to a field
type Rule struct {
	Field       string
	Kind        RuleKind
	IntegerOnly bool
	Pattern     *regexp.Regexp
	Set         []interface{}
	Length      LengthOptions
}

// String returns a string representation of the rule
func (r Rule) String() string {
	switch r.Kind {
	case RuleNumeric:
		if r.IntegerOnly {
			return fmt.Sprintf("%s: numeric (integer only)", r.Field)
		}
	case RuleFormat:
		return fmt.Sprintf("%s: format %s", r.Field, r.Pattern)
	case RuleInclusion, RuleExclusion:
		return fmt.Sprintf("%s: %s %v", r.Field, r.Kind, r.Set)
	case RuleLength:
		return fmt.Sprintf("%s: length %s", r.Field, describeLength(r.Length))
	}
	return fmt.Sprintf("%s: %s", r.Field, r.Kind)
}

func describeLength(o LengthOptions) string {
	s := ""
	if o.Is != nil {
		s += fmt.Sprintf(" is=%d", *o.Is)
	}
	if o.Within != nil {
		s += fmt.Sprintf(" within=%d..%d", o.Within.Min, o.Within.Max)
	}
	if o.Minimum != nil {
		s += fmt.Sprintf(" minimum=%d", *o.Minimum)
	}
	if o.Maximum != nil {
		s += fmt.Sprintf(" maximum=%d", *o.Maximum)
	}
	if s == "" {
		return "{}"
	}
	return "{" + s[1:] + "}"
}

// Record is what a RuleSet validates: typed reads plus the raw assigned values
type Record interface {
	Get(field string) interface{}
	RawGet(field string) interface{}
}

// UniquenessChecker answers uniqueness questions against the document store
type UniquenessChecker interface {
	IsUnique(ctx context.Context, record Record, field string, value interface{}) (bool, error)
}

// RuleSet records registered rules and evaluates them against records.
// It implements Collaborator.
type RuleSet struct {
	mu     sync.RWMutex
	rules  []Rule
	unique UniquenessChecker
}

// NewRuleSet creates an empty rule set
func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

func (rs *RuleSet) add(rule Rule) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.rules = append(rs.rules, rule)
}

// RegisterPresence implements Collaborator
func (rs *RuleSet) RegisterPresence(field string) {
	rs.add(Rule{Field: field, Kind: RulePresence})
}

// RegisterUniqueness implements Collaborator
func (rs *RuleSet) RegisterUniqueness(field string) {
	rs.add(Rule{Field: field, Kind: RuleUniqueness})
}

// RegisterNumeric implements Collaborator
func (rs *RuleSet) RegisterNumeric(field string, integerOnly bool) {
	rs.add(Rule{Field: field, Kind: RuleNumeric, IntegerOnly: integerOnly})
}

// RegisterFormat implements Collaborator
func (rs *RuleSet) RegisterFormat(field string, pattern *regexp.Regexp) {
	rs.add(Rule{Field: field, Kind: RuleFormat, Pattern: pattern})
}

// RegisterInclusion implements Collaborator
func (rs *RuleSet) RegisterInclusion(field string, set []interface{}) {
	rs.add(Rule{Field: field, Kind: RuleInclusion, Set: append([]interface{}(nil), set...)})
}

// RegisterExclusion implements Collaborator
func (rs *RuleSet) RegisterExclusion(field string, set []interface{}) {
	rs.add(Rule{Field: field, Kind: RuleExclusion, Set: append([]interface{}(nil), set...)})
}

// RegisterLength implements Collaborator
func (rs *RuleSet) RegisterLength(field string, policy LengthOptions) {
	rs.add(Rule{Field: field, Kind: RuleLength, Length: policy})
}

// Forget drops every rule attached to field. Models call it before
// rebinding a redeclared key so rules do not accumulate.
func (rs *RuleSet) Forget(field string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	kept := rs.rules[:0:0]
	for _, r := range rs.rules {
		if r.Field != field {
			kept = append(kept, r)
		}
	}
	rs.rules = kept
}

// SetUniquenessChecker installs the store-backed uniqueness check
func (rs *RuleSet) SetUniquenessChecker(checker UniquenessChecker) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.unique = checker
}

// Rules returns all registered rules in registration order
func (rs *RuleSet) Rules() []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// RulesFor returns the rules attached to field
func (rs *RuleSet) RulesFor(field string) []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var out []Rule
	for _, r := range rs.rules {
		if r.Field == field {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns an independent copy sharing the uniqueness checker
func (rs *RuleSet) Clone() *RuleSet {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := &RuleSet{
		rules:  make([]Rule, len(rs.rules)),
		unique: rs.unique,
	}
	copy(out.rules, rs.rules)
	return out
}

// Validate evaluates every rule against record
func (rs *RuleSet) Validate(ctx context.Context, record Record) error {
	rs.mu.RLock()
	rules := make([]Rule, len(rs.rules))
	copy(rules, rs.rules)
	checker := rs.unique
	rs.mu.RUnlock()

	errors := NewValidationErrors()

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}

		value := record.Get(rule.Field)

		switch rule.Kind {
		case RuleUniqueness:
			if checker == nil || value == nil {
				continue
			}
			ok, err := checker.IsUnique(ctx, record, rule.Field, value)
			if err != nil {
				return fmt.Errorf("uniqueness check for %s: %w", rule.Field, err)
			}
			if !ok {
				errors.Add(rule.Field, "has already been taken")
			}
			continue

		case RuleNumeric:
			// numericality looks at what was assigned, not what it coerced to
			if raw := record.RawGet(rule.Field); raw != nil {
				value = raw
			}
		}

		if err := validatorFor(rule).Validate(value); err != nil {
			errors.Add(rule.Field, err.Error())
		}
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

func validatorFor(rule Rule) Validator {
	switch rule.Kind {
	case RulePresence:
		return &PresenceValidator{}
	case RuleNumeric:
		return &NumericValidator{IntegerOnly: rule.IntegerOnly}
	case RuleFormat:
		return &PatternValidator{Pattern: rule.Pattern}
	case RuleInclusion:
		return &InclusionValidator{Set: rule.Set}
	case RuleExclusion:
		return &ExclusionValidator{Set: rule.Set}
	case RuleLength:
		return &LengthValidator{Options: rule.Length}
	default:
		return noopValidator{}
	}
}

type noopValidator struct{}

func (noopValidator) Validate(interface{}) error { return nil }
