package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestMessageFormat(t *testing.T) {
	msg := Message{
		Level:       LevelError,
		Context:     "store",
		Problem:     "Cannot reach redis.",
		Details:     []string{"dial tcp: connection refused"},
		Suggestions: []string{"memory"},
		Hints:       []string{"Check store.redis.addr"},
		NoColor:     true,
	}

	out := msg.Format()
	for _, want := range []string{
		"✗ STORE: Cannot reach redis.",
		"   dial tcp: connection refused",
		"   Did you mean: memory?",
		"   → Check store.redis.addr",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestMessageLevels(t *testing.T) {
	tests := []struct {
		level  Level
		prefix string
	}{
		{LevelError, "✗ "},
		{LevelWarning, "! "},
		{LevelInfo, "i "},
	}
	for _, tt := range tests {
		out := Message{Level: tt.level, Problem: "p", NoColor: true}.Format()
		if out != tt.prefix+"p\n" {
			t.Errorf("level %d: got %q", tt.level, out)
		}
	}
}

func TestModelNotFound(t *testing.T) {
	var buf bytes.Buffer
	ModelNotFound("Pesron", []string{"Person", "Address"}, true).Write(&buf)

	out := buf.String()
	if !strings.Contains(out, "MODEL NOT FOUND: Cannot find model 'Pesron'.") {
		t.Errorf("unexpected header in:\n%s", out)
	}
	if !strings.Contains(out, "Did you mean: Person?") {
		t.Errorf("expected suggestion in:\n%s", out)
	}
}

func TestValidationFailed(t *testing.T) {
	out := ValidationFailed("Person", []string{"name: can't be blank"}, true).Format()
	if !strings.Contains(out, "name: can't be blank") || !strings.Contains(out, "docmap inspect Person") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSuccess(t *testing.T) {
	if got := Success("saved", true); got != "✓ saved" {
		t.Errorf("unexpected %q", got)
	}
}
