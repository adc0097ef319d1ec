package extract

import (
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/tabular"
	"github.com/shopspring/decimal"
)

// PersonalLabel is the metric label of personal timesheet totals.
const PersonalLabel = "个人工时汇总"

const (
	metadataRows = 15
	metadataCols = 10
)

// personalColumns maps the exact personal timesheet headers to metrics, in
// emission order.
var personalColumns = []struct {
	label string
	code  model.MetricCode
}{
	{"总工时", model.MetricHourTotal},
	{"标准工时", model.MetricHourStd},
	{"加班工时", model.MetricHourOTWeekday},
	{"周末节假日打卡工时", model.MetricHourOTWeekend},
}

// Personal extracts a single-employee timesheet. The workbook form carries
// the employee name and month in label/value metadata cells above a daily
// table; the columnar form carries them as columns. Either way the hour
// columns are summed over the whole sheet.
func Personal(book *tabular.Workbook, opts Options) (Output, error) {
	sheet, err := pickSheet(book, opts)
	if err != nil {
		return Output{}, err
	}

	header := personalHeaderRow(sheet)
	if header < 0 {
		header = sheet.FindHeaderRow(nameKeywords, 0)
	}
	if header < 0 {
		return Output{}, nil
	}
	frame := sheet.Frame(header)

	if nameCol := frame.Column(nameKeywords...); nameCol >= 0 {
		return personalColumnar(frame, nameCol, opts), nil
	}

	employee := findMetadata(sheet, "姓名")
	if employee == "" {
		return Output{}, nil
	}
	period := findMetadata(sheet, "月份")
	if period == "" {
		period = opts.period()
	}

	return Output{Facts: personalFacts(frame, frame.Rows, employee, period, opts)}, nil
}

func personalColumnar(frame tabular.Frame, nameCol int, opts Options) Output {
	type key struct{ employee, period string }
	periodCol := frame.Column("月份", "period")

	var order []key
	rows := make(map[key][]tabular.Row)
	for _, row := range frame.Rows {
		employee := employeeCell(row, nameCol)
		if employee == "" {
			continue
		}
		k := key{employee: employee, period: row.Value(periodCol)}
		if k.period == "" {
			k.period = opts.period()
		}
		if _, seen := rows[k]; !seen {
			order = append(order, k)
		}
		rows[k] = append(rows[k], row)
	}

	out := Output{}
	for _, k := range order {
		out.Facts = append(out.Facts, personalFacts(frame, rows[k], k.employee, k.period, opts)...)
	}
	return out
}

// personalFacts sums each hour column over rows. A total covers the whole
// column, so the fact records the column but no row.
func personalFacts(frame tabular.Frame, rows []tabular.Row, employee, period string, opts Options) []model.FactRecord {
	var facts []model.FactRecord
	for _, pc := range personalColumns {
		col := frame.ExactColumn(pc.label)
		if col < 0 {
			continue
		}
		total := sumColumn(rows, col)
		if total.IsZero() {
			continue
		}
		fact := newFact(opts, employee, period, pc.code, total, PersonalLabel, ConfidencePersonal)
		fact.SourceSheet = frame.Sheet
		fact.SourceCol = tabular.ColumnName(col)
		facts = append(facts, fact)
	}
	return facts
}

func sumColumn(rows []tabular.Row, col int) decimal.Decimal {
	sum := decimal.Zero
	for _, row := range rows {
		if aggregateLabels[row.Value(0)] {
			continue
		}
		if v, ok := decimalAt(row, col); ok {
			sum = sum.Add(v)
		}
	}
	return sum
}

// personalHeaderRow finds the daily table header: a row with a 日期 cell
// and a 总工时 or 工时 cell.
func personalHeaderRow(sheet tabular.Sheet) int {
	for i, row := range sheet.Rows {
		var date, hours bool
		for _, cell := range row {
			switch cell {
			case "日期":
				date = true
			case "总工时", "工时":
				hours = true
			}
		}
		if date && hours {
			return i
		}
	}
	return -1
}

// findMetadata scans the top-left corner of the sheet for a cell containing
// label and returns the value to its right.
func findMetadata(sheet tabular.Sheet, label string) string {
	for r := 0; r < metadataRows && r < len(sheet.Rows); r++ {
		for c := 0; c < metadataCols && c < len(sheet.Rows[r]); c++ {
			cell := sheet.Rows[r][c]
			if cell == "" || !tabular.ContainsAny(cell, []string{label}) {
				continue
			}
			if v := sheet.Cell(r, c+1); v != "" {
				return v
			}
		}
	}
	return ""
}
