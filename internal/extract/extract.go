// Package extract turns detected payroll documents into fact records and
// policy snapshots.
//
// Template extractors understand one document family each. The heuristic
// extractor runs over any workbook and recovers what it can by keyword. The
// canonical loader reads CSV and JSON exports of the record types themselves.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/names"
	"github.com/Veraticus/payflow/internal/tabular"
	"github.com/shopspring/decimal"
)

// Errors returned by extractors.
var (
	ErrParse         = errors.New("failed to parse document")
	ErrMissingColumn = errors.New("missing required column")
)

// Confidence levels by extraction path.
var (
	ConfidenceCanonical = decimal.NewFromInt(1)
	ConfidenceAggregate = decimal.RequireFromString("0.9")
	ConfidencePersonal  = decimal.RequireFromString("0.8")
	ConfidenceHeuristic = decimal.RequireFromString("0.6")
)

// Output is what one extractor produced from one document.
type Output struct {
	Facts    []model.FactRecord
	Policies []model.PolicySnapshot
}

// Empty reports whether nothing was extracted.
func (o Output) Empty() bool {
	return len(o.Facts) == 0 && len(o.Policies) == 0
}

// Options scope an extraction run.
type Options struct {
	WorkspaceID string
	// Sheet selects a worksheet; empty means the first one.
	Sheet string
	// Period is used when the document carries no period of its own. It
	// defaults to the workspace month.
	Period string
}

func (o Options) period() string {
	if o.Period != "" {
		return o.Period
	}
	return o.WorkspaceID
}

var (
	nameKeywords    = []string{"姓名", "员工", "name"}
	aggregateLabels = map[string]bool{"合计": true, "汇总": true, "总计": true}
	rateTokens      = []string{"费率", "倍率", "比例", "%"}
)

// employeeCell returns the trimmed employee name of a row, or "" for blank
// and subtotal rows.
func employeeCell(row tabular.Row, col int) string {
	name := strings.TrimSpace(row.Value(col))
	if name == "" || aggregateLabels[name] {
		return ""
	}
	return name
}

func newFact(opts Options, employee, period string, code model.MetricCode, value decimal.Decimal, label string, confidence decimal.Decimal) model.FactRecord {
	return model.FactRecord{
		WorkspaceID:      opts.WorkspaceID,
		EmployeeName:     employee,
		EmployeeNameNorm: names.Normalize(employee),
		PeriodMonth:      period,
		MetricCode:       code,
		MetricValue:      value,
		Unit:             code.DefaultUnit(),
		Currency:         model.DefaultCurrency,
		MetricLabel:      label,
		Confidence:       confidence,
	}
}

func newPolicy(opts Options, employee, period string) model.PolicySnapshot {
	return model.PolicySnapshot{
		WorkspaceID:      opts.WorkspaceID,
		EmployeeNameNorm: names.Normalize(employee),
		PeriodMonth:      period,
		Mode:             model.ModeSalaried,
	}
}

// pickSheet returns the sheet named by opts, or the first sheet.
func pickSheet(book *tabular.Workbook, opts Options) (tabular.Sheet, error) {
	sheet, ok := book.Sheet(opts.Sheet)
	if !ok {
		if opts.Sheet == "" {
			return tabular.Sheet{}, fmt.Errorf("%w: %w", ErrParse, tabular.ErrEmptyWorkbook)
		}
		return tabular.Sheet{}, fmt.Errorf("%w: sheet %q not found", ErrParse, opts.Sheet)
	}
	return sheet, nil
}

// column is Frame.Column restricted to headers that carry none of the
// blocked tokens.
func column(f tabular.Frame, keywords, blocked []string) int {
	for _, kw := range keywords {
		for i, h := range f.Header {
			if h == "" || tabular.ContainsAny(h, blocked) {
				continue
			}
			if tabular.ContainsAny(h, []string{kw}) {
				return i
			}
		}
	}
	return -1
}

// decimalAt parses the cell at col, reporting false for missing columns and
// blank or non-numeric cells.
func decimalAt(row tabular.Row, col int) (decimal.Decimal, bool) {
	if col < 0 {
		return decimal.Zero, false
	}
	return tabular.ParseDecimal(row.Value(col))
}

func nullDecimalAt(row tabular.Row, col int) decimal.NullDecimal {
	d, ok := decimalAt(row, col)
	if !ok {
		return decimal.NullDecimal{}
	}
	return model.NewNullDecimal(d)
}
