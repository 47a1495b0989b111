package ui

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/airtable/pkg/transport"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a titled, multi-part terminal message
type Message struct {
	Level   Level
	Context string
	Problem string
	Detail  string
	Hints   []string
	NoColor bool
}

// Format renders m
//
// Example output:
//
//	❌ VALIDATION FAILED: Unknown field name: "Nmae"
//
//	   → Check field names: airtable get <table> <id>
func Format(m Message) string {
	var b strings.Builder

	var head, body *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		head, body, symbol = newColor(m.NoColor, color.FgYellow, color.Bold), newColor(m.NoColor, color.FgYellow), "⚠️"
	case LevelInfo:
		head, body, symbol = newColor(m.NoColor, color.FgCyan, color.Bold), newColor(m.NoColor, color.FgCyan), "ℹ️"
	default:
		head, body, symbol = newColor(m.NoColor, color.FgRed, color.Bold), newColor(m.NoColor, color.FgRed), "❌"
	}

	if m.Context != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if m.Detail != "" {
		b.WriteString("\n")
		body.Fprintf(&b, "   %s\n", m.Detail)
	}

	if len(m.Hints) > 0 {
		b.WriteString("\n")
		hint := newColor(m.NoColor, color.FgCyan)
		for _, h := range m.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write writes the formatted message to w
func Write(w io.Writer, m Message) {
	fmt.Fprint(w, Format(m))
}

// FormatSuccess renders a success line
func FormatSuccess(message string, noColor bool) string {
	return newColor(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// APIError explains a failed API call
func APIError(err error, noColor bool) string {
	m := Message{Level: LevelError, Problem: err.Error(), NoColor: noColor}

	var validation *transport.ValidationError
	var uncategorized *transport.UncategorizedError
	switch {
	case errors.As(err, &validation):
		m.Context = "validation failed"
		m.Problem = validation.Message
		m.Hints = []string{"Check field names and types: airtable get <table> <id>"}
	case errors.As(err, &uncategorized):
		m.Context = "request failed"
		m.Problem = uncategorized.Message
		switch uncategorized.Code {
		case 0:
			m.Detail = "The API could not be reached."
			m.Hints = []string{"Check base_url in airtable.yml and your network connection"}
		case http.StatusUnauthorized, http.StatusForbidden:
			m.Detail = fmt.Sprintf("The API rejected the credentials (status %d).", uncategorized.Code)
			m.Hints = []string{"Re-run setup: airtable init --force"}
		case http.StatusNotFound:
			m.Detail = "The table or record does not exist in this base."
		default:
			m.Detail = fmt.Sprintf("The API answered with status %d.", uncategorized.Code)
		}
	}
	return Format(m)
}

// ConfigError explains an unusable configuration
func ConfigError(err error, noColor bool) string {
	return Format(Message{
		Level:   LevelError,
		Context: "configuration error",
		Problem: err.Error(),
		Hints: []string{
			"Create a config: airtable init",
			"Or set AIRTABLE_APP_ID and AIRTABLE_API_KEY",
		},
		NoColor: noColor,
	})
}

// Warning renders a warning
func Warning(message string, noColor bool) string {
	return Format(Message{Level: LevelWarning, Problem: message, NoColor: noColor})
}

// Info renders a note
func Info(message string, noColor bool) string {
	return Format(Message{Level: LevelInfo, Problem: message, NoColor: noColor})
}
