package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a structured CLI message with optional suggestions and hints
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Details     []string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// Format renders the message
//
//	✗ MODEL NOT FOUND: Cannot find model 'Pesron'.
//
//	   Did you mean: Person?
//
//	   → List models: docmap inspect
func (m Message) Format() string {
	var b strings.Builder

	var header, body *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		header, body, symbol = color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "!"
	case LevelInfo:
		header, body, symbol = color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "i"
	default:
		header, body, symbol = color.New(color.FgRed, color.Bold), color.New(color.FgRed), "✗"
	}
	hint := color.New(color.FgCyan)
	suggest := color.New(color.FgYellow)
	if m.NoColor {
		for _, c := range []*color.Color{header, body, hint, suggest} {
			c.DisableColor()
		}
	}

	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	for _, d := range m.Details {
		body.Fprintf(&b, "   %s\n", d)
	}

	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		suggest.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}

	if len(m.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range m.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}

	return b.String()
}

// Write writes the formatted message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// ModelNotFound describes an unknown model name with suggestions drawn
// from the known names
func ModelNotFound(name string, known []string, noColor bool) Message {
	return Message{
		Context:     "model not found",
		Problem:     fmt.Sprintf("Cannot find model '%s'.", name),
		Suggestions: Suggest(name, known, 3),
		Hints:       []string{"List models: docmap inspect"},
		NoColor:     noColor,
	}
}

// ValidationFailed describes a document that failed validation. Each
// detail is one "field: message" line.
func ValidationFailed(model string, details []string, noColor bool) Message {
	return Message{
		Context: "validation failed",
		Problem: fmt.Sprintf("Document is not a valid %s.", model),
		Details: details,
		Hints:   []string{fmt.Sprintf("Show rules: docmap inspect %s", model)},
		NoColor: noColor,
	}
}

// Success formats a success line
func Success(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}
