package tracking

import (
	"sync"
	"testing"

	"github.com/conduit-lang/docmap/internal/orm/document"
)

func doc(pairs ...interface{}) document.Document {
	d := document.New()
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1])
	}
	return d
}

func TestNewChangeTracker(t *testing.T) {
	original := doc("_id", "1", "title", "Original Title", "count", int64(10))
	current := doc("_id", "1", "title", "Updated Title", "count", int64(10))

	ct := NewChangeTracker(original, current)

	if !ct.Changed("title") {
		t.Error("Expected title to be changed")
	}
	if ct.Changed("count") {
		t.Error("Expected count to be unchanged")
	}
	if ct.Changed("_id") {
		t.Error("Expected _id to be unchanged")
	}
}

func TestChangeTracker_Changed(t *testing.T) {
	tests := []struct {
		name     string
		original document.Document
		current  document.Document
		field    string
		want     bool
	}{
		{
			name:     "unchanged field",
			original: doc("field", "value"),
			current:  doc("field", "value"),
			field:    "field",
			want:     false,
		},
		{
			name:     "changed string field",
			original: doc("field", "old"),
			current:  doc("field", "new"),
			field:    "field",
			want:     true,
		},
		{
			name:     "nil to value",
			original: doc("field", nil),
			current:  doc("field", "value"),
			field:    "field",
			want:     true,
		},
		{
			name:     "new field",
			original: doc(),
			current:  doc("field", "value"),
			field:    "field",
			want:     true,
		},
		{
			name:     "removed field",
			original: doc("field", "value"),
			current:  doc(),
			field:    "field",
			want:     true,
		},
		{
			name:     "equal nested documents",
			original: doc("addr", doc("city", "Paris", "zip", "75001")),
			current:  doc("addr", doc("city", "Paris", "zip", "75001")),
			field:    "addr",
			want:     false,
		},
		{
			name:     "changed nested document",
			original: doc("addr", doc("city", "Paris")),
			current:  doc("addr", doc("city", "Lyon")),
			field:    "addr",
			want:     true,
		},
		{
			name:     "equal arrays of documents",
			original: doc("items", []interface{}{doc("n", int64(1))}),
			current:  doc("items", []interface{}{doc("n", int64(1))}),
			field:    "items",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := NewChangeTracker(tt.original, tt.current)
			if got := ct.Changed(tt.field); got != tt.want {
				t.Errorf("Changed(%q) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestChangeTracker_ChangedFieldsOrder(t *testing.T) {
	ct := NewChangeTracker(
		doc("a", 1, "b", 2, "gone", 3),
		doc("c", 9, "b", 5, "a", 1),
	)

	fields := ct.ChangedFields()
	want := []string{"c", "b", "gone"}
	if len(fields) != len(want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], fields[i])
		}
	}

	removed := ct.Removed()
	if len(removed) != 1 || removed[0] != "gone" {
		t.Errorf("expected [gone], got %v", removed)
	}
}

func TestChangeTracker_Values(t *testing.T) {
	ct := NewChangeTracker(doc("name", "Ada"), doc("name", "Grace"))

	if ct.PreviousValue("name") != "Ada" {
		t.Errorf("unexpected previous value %v", ct.PreviousValue("name"))
	}
	if ct.CurrentValue("name") != "Grace" {
		t.Errorf("unexpected current value %v", ct.CurrentValue("name"))
	}
	if !ct.ChangedFrom("name", "Ada") || !ct.ChangedTo("name", "Grace") {
		t.Error("expected change from Ada to Grace")
	}
	if ct.ChangedTo("missing", "x") || ct.ChangedFrom("missing", "x") {
		t.Error("unchanged fields never match")
	}

	change := ct.GetChange("name")
	if change == nil || change.Field != "name" {
		t.Errorf("unexpected change %+v", change)
	}
}

func TestChangeTracker_ChangedData(t *testing.T) {
	ct := NewChangeTracker(
		doc("a", 1, "b", 2, "gone", 3),
		doc("a", 1, "b", 5),
	)

	data := ct.ChangedData()
	if data.Len() != 1 {
		t.Fatalf("expected one changed field, got %v", data.Keys())
	}
	if v, _ := data.Get("b"); v != 5 {
		t.Errorf("expected b=5, got %v", v)
	}
}

func TestChangeTracker_Reset(t *testing.T) {
	ct := NewChangeTracker(doc("a", 1), doc("a", 2))
	if !ct.HasChanges() {
		t.Fatal("expected changes")
	}

	ct.Reset()

	if ct.HasChanges() {
		t.Error("expected no changes after reset")
	}
	if ct.PreviousValue("a") != 2 {
		t.Errorf("expected original to follow current, got %v", ct.PreviousValue("a"))
	}
}

func TestChangeTracker_SnapshotsAreCopies(t *testing.T) {
	original := doc("a", 1)
	current := doc("a", 1)
	ct := NewChangeTracker(original, current)

	current.Set("a", 2)

	if ct.Changed("a") {
		t.Error("mutating the input should not affect the tracker")
	}
}

func TestChangeTracker_ConcurrentReads(t *testing.T) {
	ct := NewChangeTracker(doc("a", 1, "b", 2), doc("a", 3, "b", 2))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ct.Changed("a")
			_ = ct.ChangedFields()
			_ = ct.ChangedData()
		}()
	}
	wg.Wait()
}
