package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "Key", "Type", "Options")

	table.AddRow("_id", "object_id")
	table.AddRow("name", "string", "required")
	table.AddRow("tags", "array<string>")

	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, rule and 3 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Key   Type           Options" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "────") {
		t.Errorf("expected separator, got %q", lines[1])
	}
	if lines[3] != "name  string         required" {
		t.Errorf("unexpected row %q", lines[3])
	}
	if lines[2] != "_id   object_id" {
		t.Errorf("missing cells should not leave trailing space, got %q", lines[2])
	}
	if table.Len() != 3 {
		t.Errorf("expected 3 rows, got %d", table.Len())
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()

	if buf.String() != "" {
		t.Errorf("Expected empty output for table with no headers, got: %q", buf.String())
	}
}

func TestKeyValue(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValue(&buf, true)
	kv.Add("Model", "Person")
	kv.Add("Parent", "-")

	kv.Render()

	want := "Model:  Person\nParent: -\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Person", true)

	if buf.String() != "Person\n──────\n" {
		t.Errorf("unexpected header %q", buf.String())
	}
}
