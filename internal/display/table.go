package display

import (
	"strings"
	"unicode/utf8"
)

// Table renders an aligned text table. Widths are measured in runes so
// Arabic Hijri dates line up with Latin columns.
type Table struct {
	headers []string
	rows    [][]string
	styles  map[int]Style
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers, styles: map[int]Style{}}
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// StyleRow paints the 0-based row idx, e.g. StyleAccent for today and
// StyleDim for prayers that have passed.
func (t *Table) StyleRow(idx int, s Style) {
	t.styles[idx] = s
}

// Render produces the table with a two-space indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("  " + Bold(formatRow(t.headers, widths)) + "\n")

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sep, "  ")) + "\n")

	for i, row := range t.rows {
		sb.WriteString("  " + Paint(t.styles[i], formatRow(row, widths)) + "\n")
	}
	return sb.String()
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = PadRight(cell, w)
	}
	return strings.Join(parts, "  ")
}

// PadRight pads s with spaces to width runes.
func PadRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
