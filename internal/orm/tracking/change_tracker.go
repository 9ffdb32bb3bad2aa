// Package tracking provides change tracking for mapped instances.
// It compares the document an instance was loaded from with its current
// serialized form so persistence can write only modified fields.
package tracking

import (
	"reflect"
	"sync"

	"github.com/conduit-lang/docmap/internal/orm/document"
)

// FieldChange represents a change to a single field
type FieldChange struct {
	Field    string
	OldValue interface{}
	NewValue interface{}
}

// ChangeTracker tracks field changes between two document snapshots
type ChangeTracker struct {
	mu       sync.RWMutex
	original document.Document
	current  document.Document
	order    []string
	changes  map[string]*FieldChange
}

// NewChangeTracker creates a new change tracker
// original: the document as last loaded or persisted
// current: the document as it would be written now
func NewChangeTracker(original, current document.Document) *ChangeTracker {
	ct := &ChangeTracker{
		original: original.Clone(),
		current:  current.Clone(),
		changes:  make(map[string]*FieldChange),
	}
	ct.computeChanges()
	return ct
}

// computeChanges calculates which fields have changed. Fields are ordered as
// in the current document, followed by fields that were removed.
func (ct *ChangeTracker) computeChanges() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.current.Range(func(field string, newValue interface{}) bool {
		oldValue, hadOldValue := ct.original.Get(field)
		if !hadOldValue || !deepEqual(oldValue, newValue) {
			ct.record(field, oldValue, newValue)
		}
		return true
	})

	ct.original.Range(func(field string, oldValue interface{}) bool {
		if !ct.current.Has(field) {
			ct.record(field, oldValue, nil)
		}
		return true
	})
}

func (ct *ChangeTracker) record(field string, oldValue, newValue interface{}) {
	if _, exists := ct.changes[field]; !exists {
		ct.order = append(ct.order, field)
	}
	ct.changes[field] = &FieldChange{
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
	}
}

// deepEqual compares two values for equality, handling nil and nested documents
func deepEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	if da, ok := a.(document.Document); ok {
		db, ok := b.(document.Document)
		if !ok || da.Len() != db.Len() {
			return false
		}
		equal := true
		da.Range(func(k string, v interface{}) bool {
			other, exists := db.Get(k)
			equal = exists && deepEqual(v, other)
			return equal
		})
		return equal
	}

	if la, ok := a.([]interface{}); ok {
		lb, ok := b.([]interface{})
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !deepEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

// Changed returns true if the specified field has changed
func (ct *ChangeTracker) Changed(field string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.changes[field]
	return ok
}

// ChangedFields returns the changed field names in document order
func (ct *ChangeTracker) ChangedFields() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	fields := make([]string, 0, len(ct.order))
	for _, field := range ct.order {
		if _, ok := ct.changes[field]; ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// PreviousValue returns the previous value of a field
// Returns nil if the field didn't exist in the original state
func (ct *ChangeTracker) PreviousValue(field string) interface{} {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	v, _ := ct.original.Get(field)
	return v
}

// CurrentValue returns the current value of a field
func (ct *ChangeTracker) CurrentValue(field string) interface{} {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	v, _ := ct.current.Get(field)
	return v
}

// GetChange returns the FieldChange for a specific field, or nil if unchanged
func (ct *ChangeTracker) GetChange(field string) *FieldChange {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.changes[field]
}

// HasChanges returns true if any fields have changed
func (ct *ChangeTracker) HasChanges() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.changes) > 0
}

// ChangedTo returns true if the field changed to the specified value
func (ct *ChangeTracker) ChangedTo(field string, value interface{}) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	change, ok := ct.changes[field]
	if !ok {
		return false
	}
	return deepEqual(change.NewValue, value)
}

// ChangedFrom returns true if the field changed from the specified value
func (ct *ChangeTracker) ChangedFrom(field string, value interface{}) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	change, ok := ct.changes[field]
	if !ok {
		return false
	}
	return deepEqual(change.OldValue, value)
}

// Reset clears all tracked changes and makes the current state the original.
// This should be called after a successful save operation.
func (ct *ChangeTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.original = ct.current.Clone()
	ct.changes = make(map[string]*FieldChange)
	ct.order = nil
}

// ChangedData returns a document of only the changed fields with their new
// values, suitable for a partial update. Removed fields are not included.
func (ct *ChangeTracker) ChangedData() document.Document {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	out := document.New()
	for _, field := range ct.order {
		if !ct.current.Has(field) {
			continue
		}
		if change, ok := ct.changes[field]; ok {
			out.Set(field, change.NewValue)
		}
	}
	return out
}

// Removed returns the fields present in the original but not the current state
func (ct *ChangeTracker) Removed() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	var out []string
	for _, field := range ct.order {
		if !ct.current.Has(field) {
			out = append(out, field)
		}
	}
	return out
}
