package style

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Alignment of a column's cells.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Column describes one table column.
type Column struct {
	Name  string
	Width int
	Align Alignment
	Style Style // optional, applied to cells
}

// Style renders a cell. It matches lipgloss.Style.Render.
type Style interface {
	Render(strs ...string) string
}

// Table is a fixed-width text table.
type Table struct {
	columns   []Column
	rows      [][]string
	indent    string
	headerSep bool
}

// NewTable creates a table with a header separator and a two-space indent.
func NewTable(columns ...Column) *Table {
	return &Table{columns: columns, indent: "  ", headerSep: true}
}

// SetIndent sets the prefix of every line.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// SetHeaderSeparator turns the line under the header on or off.
func (t *Table) SetHeaderSeparator(on bool) *Table {
	t.headerSep = on
	return t
}

// AddRow appends a row. Missing cells are empty; extra cells are dropped.
func (t *Table) AddRow(values ...string) *Table {
	row := make([]string, len(t.columns))
	copy(row, values)
	t.rows = append(t.rows, row)
	return t
}

// Render returns the table text.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}
	var b strings.Builder

	header := make([]string, len(t.columns))
	for i, c := range t.columns {
		name := truncate(c.Name, c.Width)
		header[i] = t.pad(Bold.Render(name), name, c.Width, c.Align)
	}
	t.writeLine(&b, header)

	if t.headerSep {
		sep := make([]string, len(t.columns))
		for i, c := range t.columns {
			sep[i] = Dim.Render(strings.Repeat("─", c.Width))
		}
		t.writeLine(&b, sep)
	}

	for _, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, c := range t.columns {
			plain := truncate(stripAnsi(row[i]), c.Width)
			styled := plain
			if plain == stripAnsi(row[i]) {
				styled = row[i]
			}
			if c.Style != nil {
				styled = c.Style.Render(plain)
			}
			cells[i] = t.pad(styled, plain, c.Width, c.Align)
		}
		t.writeLine(&b, cells)
	}
	return b.String()
}

func (t *Table) writeLine(b *strings.Builder, cells []string) {
	b.WriteString(t.indent)
	b.WriteString(strings.TrimRight(strings.Join(cells, " "), " "))
	b.WriteString("\n")
}

// pad pads styled to width, measuring with its plain text.
func (t *Table) pad(styled, plain string, width int, align Alignment) string {
	n := utf8.RuneCountInString(plain)
	if n >= width {
		return styled
	}
	gap := width - n
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + styled
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + styled + strings.Repeat(" ", gap-left)
	default:
		return styled + strings.Repeat(" ", gap)
	}
}

func truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= 3 {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-3]) + "..."
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
