package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SheetSpec describes one worksheet of a fixture workbook. Cells may be
// strings, ints, floats or nil.
type SheetSpec struct {
	Name string
	Rows [][]any
}

// WriteXLSX writes a workbook fixture into dir and returns its path.
//
// Example:
//
//	path := testutil.WriteXLSX(t, t.TempDir(), "policy.xlsx", testutil.SheetSpec{
//		Name: "薪资",
//		Rows: [][]any{{"姓名", "模式", "基本工资"}, {"李四", "SALARIED", 12000}},
//	})
func WriteXLSX(t *testing.T, dir, name string, sheets ...SheetSpec) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, spec := range sheets {
		sheetName := spec.Name
		if sheetName == "" {
			sheetName = "Sheet1"
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				t.Fatalf("failed to rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheetName); err != nil {
			t.Fatalf("failed to add sheet %q: %v", sheetName, err)
		}

		for r, row := range spec.Rows {
			for c, value := range row {
				if value == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("invalid cell coordinates: %v", err)
				}
				if err := f.SetCellValue(sheetName, cell, value); err != nil {
					t.Fatalf("failed to set %s: %v", cell, err)
				}
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}

// WriteCSV writes rows as a CSV fixture into dir and returns its path.
func WriteCSV(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create csv: %v", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	return path
}

// WriteFile writes raw bytes into dir and returns its path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
