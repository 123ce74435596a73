package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is a plain column-aligned table. Cell widths are measured with
// lipgloss so wide Hangul device names line up.
type Table struct {
	Headers []string
	Rows    [][]string

	// Style, when set, styles a cell after padding
	Style func(row, col int, cell string) lipgloss.Style
}

// NewTable creates a table with the given column headings
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// AddRow appends a row; missing cells render empty
func (t *Table) AddRow(cells ...string) *Table {
	t.Rows = append(t.Rows, cells)
	return t
}

// Render returns the table as a string
func (t *Table) Render() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(t.renderRow(-1, t.Headers, widths))
	for i, row := range t.Rows {
		b.WriteString("\n")
		b.WriteString(t.renderRow(i, row, widths))
	}
	return b.String()
}

func (t *Table) renderRow(index int, row []string, widths []int) string {
	cells := make([]string, len(widths))
	for i, w := range widths {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		padded := cell + strings.Repeat(" ", w-lipgloss.Width(cell))

		switch {
		case index < 0:
			cells[i] = TableHeaderStyle.Render(padded)
		case t.Style != nil:
			cells[i] = t.Style(index, i, cell).Render(padded)
		default:
			cells[i] = TableCellStyle.Render(padded)
		}
	}
	return "  " + strings.TrimRight(strings.Join(cells, "  "), " ")
}
