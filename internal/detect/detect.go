// Package detect classifies uploaded files into the payroll document
// templates the extractors understand.
package detect

import (
	"path/filepath"
	"strings"

	"github.com/Veraticus/payflow/internal/tabular"
)

// Schema names a recognised document shape.
type Schema string

// Schemas.
const (
	SchemaFactTable            Schema = "fact_table"
	SchemaPolicyTable          Schema = "policy_table"
	SchemaPolicySheet          Schema = "policy_sheet"
	SchemaTimesheetAggregate   Schema = "timesheet_aggregate"
	SchemaTimesheetPersonal    Schema = "timesheet_personal"
	SchemaRosterSheet          Schema = "roster_sheet"
	SchemaJSONPayload          Schema = "json_payload"
	SchemaImageDocument        Schema = "image_document"
	SchemaUnstructuredDocument Schema = "unstructured_document"
	SchemaTextDocument         Schema = "text_document"
	SchemaUnknown              Schema = "unknown"
)

// SampleRows bounds how many rows per sheet detection inspects.
const SampleRows = 20

// Result is the outcome of detection.
type Result struct {
	Schema      Schema
	Sheet       string
	RequiresOCR bool
}

var (
	imageSuffixes = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true,
		".tif": true, ".tiff": true, ".webp": true, ".heic": true,
	}
	documentSuffixes = map[string]bool{
		".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	}
	textSuffixes = map[string]bool{".txt": true, ".md": true}
)

// Detect inspects the file at path. It never fails: unreadable spreadsheets
// classify as unknown, and the returned error only explains why.
func Detect(path string) (Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case tabular.IsSpreadsheet(path), ext == ".csv":
		book, err := tabular.Open(path)
		if err != nil {
			return Result{Schema: SchemaUnknown}, err
		}
		return Workbook(book), nil
	case ext == ".json":
		return Result{Schema: SchemaJSONPayload}, nil
	case imageSuffixes[ext]:
		return Result{Schema: SchemaImageDocument, RequiresOCR: true}, nil
	case documentSuffixes[ext]:
		return Result{Schema: SchemaUnstructuredDocument, RequiresOCR: true}, nil
	case textSuffixes[ext]:
		return Result{Schema: SchemaTextDocument}, nil
	default:
		return Result{Schema: SchemaUnknown}, nil
	}
}

// Workbook classifies an opened workbook. Sheets are tried in order and the
// first classified sheet wins.
func Workbook(book *tabular.Workbook) Result {
	for _, sheet := range book.Sheets {
		if schema, ok := Sheet(sheet); ok {
			return Result{Schema: schema, Sheet: sheet.Name}
		}
	}
	return Result{Schema: SchemaUnknown}
}

// Sheet classifies a single sheet. The first row is tried as header, then
// each of the following sample rows, for sheets with metadata rows above the
// real header.
func Sheet(sheet tabular.Sheet) (Schema, bool) {
	limit := len(sheet.Rows)
	if limit > SampleRows+1 {
		limit = SampleRows + 1
	}
	for i := 0; i < limit; i++ {
		if schema, ok := Header(sheet.Rows[i]); ok {
			return schema, true
		}
	}
	return SchemaUnknown, false
}
