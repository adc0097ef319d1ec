package extract

import (
	"github.com/Veraticus/payflow/internal/detect"
	"github.com/Veraticus/payflow/internal/tabular"
)

// Func is the signature shared by the template extractors.
type Func func(book *tabular.Workbook, opts Options) (Output, error)

var templates = map[detect.Schema]Func{
	detect.SchemaTimesheetPersonal:  Personal,
	detect.SchemaTimesheetAggregate: Aggregate,
	detect.SchemaPolicySheet:        PolicySheet,
	detect.SchemaRosterSheet:        Roster,
	detect.SchemaFactTable:          canonicalWorkbook,
	detect.SchemaPolicyTable:        canonicalWorkbook,
}

// Lookup returns the template extractor for schema.
func Lookup(schema detect.Schema) (Func, bool) {
	fn, ok := templates[schema]
	return fn, ok
}

// Template runs the extractor registered for schema. Schemas without a
// template extractor yield an empty output.
func Template(schema detect.Schema, book *tabular.Workbook, opts Options) (Output, error) {
	fn, ok := Lookup(schema)
	if !ok {
		return Output{}, nil
	}
	return fn(book, opts)
}

func canonicalWorkbook(book *tabular.Workbook, opts Options) (Output, error) {
	sheet, err := pickSheet(book, opts)
	if err != nil {
		return Output{}, err
	}
	return CanonicalSheet(sheet, opts)
}
