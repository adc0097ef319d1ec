package extract

import (
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/tabular"
)

var aggregateColumns = []struct {
	code     model.MetricCode
	keywords []string
}{
	{model.MetricHourStd, []string{"工作日标准工时", "标准工时"}},
	{model.MetricHourOTWeekday, []string{"工作日加班工时", "平日加班"}},
	{model.MetricHourOTWeekend, []string{"周末节假日打卡工时", "周末加班", "节假日加班"}},
	{model.MetricHourTotal, []string{"当月工时", "总工时"}},
	{model.MetricHourConfirmed, []string{"确认工时"}},
}

// Aggregate extracts a monthly hours summary with one row per employee. The
// header may sit below metadata rows; it is the first row naming the
// employee column, preferring one that also names a metric column.
func Aggregate(book *tabular.Workbook, opts Options) (Output, error) {
	sheet, err := pickSheet(book, opts)
	if err != nil {
		return Output{}, err
	}

	header := aggregateHeaderRow(sheet)
	if header < 0 {
		return Output{}, nil
	}
	frame := sheet.Frame(header)
	nameCol := frame.Column(nameKeywords...)
	if nameCol < 0 {
		return Output{}, nil
	}

	cols := make([]int, len(aggregateColumns))
	for i, ac := range aggregateColumns {
		cols[i] = column(frame, ac.keywords, rateTokens)
	}

	out := Output{}
	period := opts.period()
	for _, row := range frame.Rows {
		employee := employeeCell(row, nameCol)
		if employee == "" {
			continue
		}
		for i, ac := range aggregateColumns {
			value, ok := decimalAt(row, cols[i])
			if !ok {
				continue
			}
			fact := newFact(opts, employee, period, ac.code, value, frame.HeaderAt(cols[i]), ConfidenceAggregate)
			fact.SourceSheet = sheet.Name
			fact.SourceRow = row.Number
			fact.SourceCol = tabular.ColumnName(cols[i])
			out.Facts = append(out.Facts, fact)
		}
	}
	return out, nil
}

func aggregateHeaderRow(sheet tabular.Sheet) int {
	var metricKeywords []string
	for _, ac := range aggregateColumns {
		metricKeywords = append(metricKeywords, ac.keywords...)
	}
	for i, row := range sheet.Rows {
		var name, metric bool
		for _, cell := range row {
			if cell == "" {
				continue
			}
			name = name || tabular.ContainsAny(cell, nameKeywords)
			metric = metric || tabular.ContainsAny(cell, metricKeywords)
		}
		if name && metric {
			return i
		}
	}
	return sheet.FindHeaderRow(nameKeywords, 0)
}
