// Package tabular reads spreadsheet and CSV uploads into a uniform grid of
// trimmed cell strings and offers header-aware views over it.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Errors returned while opening workbooks.
var (
	ErrUnsupportedFormat = errors.New("unsupported tabular format")
	ErrEmptyWorkbook     = errors.New("workbook has no sheets")
)

// Sheet is one grid of cells. Rows may be ragged.
type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is an opened tabular file.
type Workbook struct {
	Path   string
	Sheets []Sheet
}

// Sheet returns the named sheet, or the first sheet when name is empty.
func (w *Workbook) Sheet(name string) (Sheet, bool) {
	if len(w.Sheets) == 0 {
		return Sheet{}, false
	}
	if name == "" {
		return w.Sheets[0], true
	}
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// SpreadsheetSuffixes are the workbook extensions handled by excelize.
var SpreadsheetSuffixes = map[string]bool{".xlsx": true, ".xlsm": true, ".xls": true}

// IsSpreadsheet reports whether path has a workbook extension.
func IsSpreadsheet(path string) bool {
	return SpreadsheetSuffixes[strings.ToLower(filepath.Ext(path))]
}

// IsCSV reports whether path has a .csv extension.
func IsCSV(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".csv"
}

// Open reads a workbook or CSV file from disk.
func Open(path string) (*Workbook, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return openXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open csv: %w", err)
		}
		defer func() { _ = f.Close() }()
		sheet, err := ReadCSV(f, strings.TrimSuffix(filepath.Base(path), ext))
		if err != nil {
			return nil, err
		}
		return &Workbook{Path: path, Sheets: []Sheet{sheet}}, nil
	default:
		// Legacy BIFF .xls needs a reader we do not carry.
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func openXLSX(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, ErrEmptyWorkbook
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook properties: %w", err)
	}
	dates := dateFormatter{file: f, date1904: props.Date1904 != nil && *props.Date1904, styles: make(map[int]bool)}

	book := &Workbook{Path: path, Sheets: make([]Sheet, 0, len(names))}
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		dates.apply(name, rows)
		book.Sheets = append(book.Sheets, Sheet{Name: name, Rows: trimRows(rows)})
	}
	return book, nil
}

// dateNumFmts are the built-in number formats that render a date.
var dateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// dateFormatter rewrites date-formatted cells, which raw reads return as
// Excel serial numbers, to YYYY-MM-DD.
type dateFormatter struct {
	file     *excelize.File
	styles   map[int]bool
	date1904 bool
}

func (d dateFormatter) apply(sheet string, rows [][]string) {
	for r, row := range rows {
		for c, cell := range row {
			serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil || serial < 1 {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			styleID, err := d.file.GetCellStyle(sheet, ref)
			if err != nil || !d.isDate(styleID) {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, d.date1904)
			if err != nil {
				continue
			}
			rows[r][c] = t.Format("2006-01-02")
		}
	}
}

func (d dateFormatter) isDate(styleID int) bool {
	if styleID <= 0 {
		return false
	}
	if known, ok := d.styles[styleID]; ok {
		return known
	}
	isDate := false
	if style, err := d.file.GetStyle(styleID); err == nil {
		isDate = dateNumFmts[style.NumFmt] || (style.CustomNumFmt != nil && customDateFormat(*style.CustomNumFmt))
	}
	d.styles[styleID] = isDate
	return isDate
}

// customDateFormat reports whether a format code has a year or day token
// outside quoted literals and bracketed sections.
func customDateFormat(code string) bool {
	var quoted, bracketed bool
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracketed = true
		case r == ']':
			bracketed = false
		case bracketed:
		case r == 'y' || r == 'd':
			return true
		}
	}
	return false
}

// ReadCSV reads a CSV stream into a sheet. A UTF-8 byte-order mark is
// dropped.
func ReadCSV(r io.Reader, name string) (Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return Sheet{Name: name, Rows: trimRows(rows)}, nil
}

func trimRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		out[i] = cells
	}
	return out
}

// Cell returns the trimmed value at (row, col), both zero-based, or "" when
// out of range.
func (s Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return ""
	}
	return s.Rows[row][col]
}

// Width returns the widest row length.
func (s Sheet) Width() int {
	w := 0
	for _, row := range s.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// BlankRow reports whether every cell of row i is empty.
func (s Sheet) BlankRow(i int) bool {
	if i < 0 || i >= len(s.Rows) {
		return true
	}
	for _, c := range s.Rows[i] {
		if c != "" {
			return false
		}
	}
	return true
}

// Empty reports whether the sheet holds no data at all.
func (s Sheet) Empty() bool {
	for i := range s.Rows {
		if !s.BlankRow(i) {
			return false
		}
	}
	return true
}
