// Package ui renders records and errors for the terminal
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// MaxCellWidth bounds a table cell; longer values are truncated
const MaxCellWidth = 40

// Table renders rows under bold headers with aligned columns
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, headers []string, noColor bool) *Table {
	return &Table{writer: w, headers: headers, noColor: noColor}
}

// AddRow appends a row; missing cells render empty
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
			}
		}
	}

	header := newColor(t.noColor, color.Bold, color.FgCyan)
	rule := newColor(t.noColor, color.FgHiBlack)

	for i, h := range t.headers {
		header.Fprint(t.writer, pad(h, widths[i]))
		t.gap(i)
	}
	fmt.Fprintln(t.writer)

	for i, w := range widths {
		rule.Fprint(t.writer, strings.Repeat("─", w))
		t.gap(i)
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			fmt.Fprint(t.writer, pad(cell, widths[i]))
			t.gap(i)
		}
		fmt.Fprintln(t.writer)
	}
}

func (t *Table) gap(col int) {
	if col < len(t.headers)-1 {
		fmt.Fprint(t.writer, "  ")
	}
}

// KeyValueTable renders one "key: value" line per row
type KeyValueTable struct {
	writer  io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewKeyValueTable creates an empty key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow appends a pair
func (t *KeyValueTable) AddRow(key, value string) {
	t.keys = append(t.keys, key)
	t.values = append(t.values, value)
}

// Render writes the pairs with keys aligned
func (t *KeyValueTable) Render() {
	width := 0
	for _, k := range t.keys {
		width = max(width, utf8.RuneCountInString(k)+1)
	}

	key := newColor(t.noColor, color.FgCyan)
	for i, k := range t.keys {
		key.Fprint(t.writer, pad(k+":", width))
		fmt.Fprintf(t.writer, " %s\n", t.values[i])
	}
}

// RenderRecords writes records as a table with an id column followed by
// columns. When columns is empty every field seen in any record is shown,
// sorted by name.
func RenderRecords(w io.Writer, records []map[string]any, columns []string, noColor bool) {
	if len(columns) == 0 {
		columns = fieldNames(records)
	}

	t := NewTable(w, append([]string{"id"}, columns...), noColor)
	for _, rec := range records {
		fields, _ := rec["fields"].(map[string]any)
		row := []string{FormatValue(rec["id"])}
		for _, col := range columns {
			row = append(row, truncate(FormatValue(fields[col]), MaxCellWidth))
		}
		t.AddRow(row...)
	}
	t.Render()
}

// RenderRecord writes a single record as key-value pairs
func RenderRecord(w io.Writer, rec map[string]any, noColor bool) {
	t := NewKeyValueTable(w, noColor)
	t.AddRow("id", FormatValue(rec["id"]))
	if created, ok := rec["createdTime"].(string); ok {
		t.AddRow("created", created)
	}

	fields, _ := rec["fields"].(map[string]any)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.AddRow(name, FormatValue(fields[name]))
	}
	t.Render()
}

// FormatValue renders a decoded JSON value for display
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				// attachments and collaborators
				if name, ok := m["filename"].(string); ok {
					parts = append(parts, name)
					continue
				}
				if name, ok := m["name"].(string); ok {
					parts = append(parts, name)
					continue
				}
			}
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func fieldNames(records []map[string]any) []string {
	seen := map[string]bool{}
	var names []string
	for _, rec := range records {
		fields, _ := rec["fields"].(map[string]any)
		for name := range fields {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func newColor(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}
