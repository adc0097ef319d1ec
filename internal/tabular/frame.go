package tabular

import (
	"strings"

	"github.com/Veraticus/payflow/internal/model"
)

// Row is one data row of a frame.
type Row struct {
	Cells []string
	// Number is the 1-based row number in the source sheet.
	Number int
}

// Value returns the cell in column col, or "".
func (r Row) Value(col int) string {
	if col < 0 || col >= len(r.Cells) {
		return ""
	}
	return r.Cells[col]
}

// Blank reports whether the row has no values.
func (r Row) Blank() bool {
	for _, c := range r.Cells {
		if c != "" {
			return false
		}
	}
	return true
}

// Frame is a sheet viewed through one of its rows as the header.
type Frame struct {
	Sheet  string
	Header []string
	Rows   []Row
}

// Frame builds a frame using row headerRow (zero-based) as header. Blank data
// rows are dropped.
func (s Sheet) Frame(headerRow int) Frame {
	f := Frame{Sheet: s.Name}
	if headerRow < 0 || headerRow >= len(s.Rows) {
		return f
	}
	f.Header = append([]string(nil), s.Rows[headerRow]...)
	for i := headerRow + 1; i < len(s.Rows); i++ {
		row := Row{Number: i + 1, Cells: s.Rows[i]}
		if row.Blank() {
			continue
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// FindHeaderRow returns the first non-blank row within limit rows that holds
// a cell containing any keyword, or -1.
func (s Sheet) FindHeaderRow(keywords []string, limit int) int {
	for i := 0; i < len(s.Rows) && (limit <= 0 || i < limit); i++ {
		for _, cell := range s.Rows[i] {
			if cell != "" && ContainsAny(cell, keywords) {
				return i
			}
		}
	}
	return -1
}

// Empty reports whether the frame has no data rows.
func (f Frame) Empty() bool {
	return len(f.Rows) == 0
}

// Column tries keywords in order and, for each, scans columns left to right.
// It returns the first match or -1.
func (f Frame) Column(keywords ...string) int {
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		for i, h := range f.Header {
			if h != "" && strings.Contains(strings.ToLower(h), kw) {
				return i
			}
		}
	}
	return -1
}

// FirstColumn scans columns left to right and returns the first whose header
// contains any keyword, or -1.
func (f Frame) FirstColumn(keywords ...string) int {
	for i, h := range f.Header {
		if h != "" && ContainsAny(h, keywords) {
			return i
		}
	}
	return -1
}

// ExactColumn returns the column whose header equals label case-insensitively.
func (f Frame) ExactColumn(label string) int {
	for i, h := range f.Header {
		if strings.EqualFold(h, label) {
			return i
		}
	}
	return -1
}

// HeaderAt returns the header label of column col.
func (f Frame) HeaderAt(col int) string {
	if col < 0 || col >= len(f.Header) {
		return ""
	}
	return f.Header[col]
}

// Record returns the row as a map keyed by header, keeping the verbatim cell
// text. Columns without a header are keyed by their position.
func (f Frame) Record(r Row) model.Tree {
	entries := make(map[string]model.Tree, len(f.Header))
	width := len(f.Header)
	if len(r.Cells) > width {
		width = len(r.Cells)
	}
	for i := 0; i < width; i++ {
		key := f.HeaderAt(i)
		if key == "" {
			if r.Value(i) == "" {
				continue
			}
			key = ColumnName(i)
		}
		v := r.Value(i)
		if v == "" {
			entries[key] = model.Null()
			continue
		}
		entries[key] = model.String(v)
	}
	return model.Map(entries)
}

// ContainsAny reports whether text contains any keyword, case-insensitively.
func ContainsAny(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// ColumnName returns the spreadsheet letter of zero-based column i.
func ColumnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}
