package extract

import (
	"strconv"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/tabular"
)

// heuristicMetrics maps header keywords to metrics, in match priority.
var heuristicMetrics = []struct {
	code     model.MetricCode
	keywords []string
}{
	{model.MetricHourStd, []string{"标准工时", "正常工时", "平日工时"}},
	{model.MetricHourOTWeekday, []string{"工作日加班", "平日加班", "平时加班", "普通加班"}},
	{model.MetricHourOTWeekend, []string{"周末加班", "节假日加班", "休息日加班"}},
	{model.MetricHourTotal, []string{"总工时", "当月工时", "工时合计"}},
	{model.MetricHourConfirmed, []string{"确认工时", "核定工时", "确认合计"}},
	{model.MetricAmountBase, []string{"基本工资", "底薪", "月薪", "岗位工资"}},
	{model.MetricAmountAllow, []string{"津贴", "补贴", "补助"}},
	{model.MetricAmountDeduct, []string{"扣款", "罚款", "缺勤扣减"}},
}

var heuristicPolicyColumns = policyColumns{
	mode:       []string{"模式", "计薪方式", "mode"},
	base:       []string{"基本工资", "底薪", "月薪", "岗位工资"},
	rate:       []string{"时薪", "hourly", "基准时薪"},
	otRateWD:   []string{"工作日加班费率", "平日加班费率", "平日加班时薪"},
	otRateWE:   []string{"周末加班费率", "节假日加班费率", "周末加班时薪"},
	otMultWD:   []string{"工作日加班倍率", "平日加班倍率"},
	otMultWE:   []string{"周末加班倍率", "节假日加班倍率"},
	allowance:  []string{"津贴", "补贴", "补助"},
	deduction:  []string{"扣款", "罚款", "缺勤"},
	ssEmployee: []string{"社保个人", "公积金个人", "个人比例"},
	ssEmployer: []string{"社保公司", "公积金公司", "公司比例"},
}

// matchMetric maps a header to a metric. Rate, multiplier and ratio headers
// never match so that a rate is not counted as an amount.
func matchMetric(header string) (model.MetricCode, bool) {
	if header == "" || tabular.ContainsAny(header, rateTokens) {
		return "", false
	}
	for _, hm := range heuristicMetrics {
		if tabular.ContainsAny(header, hm.keywords) {
			return hm.code, true
		}
	}
	return "", false
}

// Heuristic scans every sheet of the workbook for an employee column and
// emits facts for metric-like columns and, when the sheet has mode or base
// pay columns, one policy snapshot per employee. Periods default to the
// workspace month.
func Heuristic(book *tabular.Workbook, opts Options) (Output, error) {
	out := Output{}
	period := opts.period()

	for _, sheet := range book.Sheets {
		if sheet.Empty() {
			continue
		}
		header := sheet.FindHeaderRow(nameKeywords, SampleRows)
		if header < 0 {
			continue
		}
		frame := sheet.Frame(header)
		nameCol := frame.FirstColumn(nameKeywords...)
		if nameCol < 0 {
			continue
		}

		metrics := make(map[int]model.MetricCode)
		for i, h := range frame.Header {
			if i == nameCol {
				continue
			}
			if code, ok := matchMetric(h); ok {
				metrics[i] = code
			}
		}
		layout := heuristicPolicyColumns.resolve(frame, columnMajor)
		hasPolicy := layout.mode >= 0 || layout.base >= 0 || layout.rate >= 0

		for _, row := range frame.Rows {
			employee := employeeCell(row, nameCol)
			if employee == "" {
				continue
			}

			for i := range frame.Header {
				code, ok := metrics[i]
				if !ok {
					continue
				}
				value, ok := decimalAt(row, i)
				if !ok {
					continue
				}
				fact := newFact(opts, employee, period, code, value, frame.HeaderAt(i), ConfidenceHeuristic)
				fact.SourceSheet = sheet.Name
				fact.SourceRow = row.Number
				fact.SourceCol = tabular.ColumnName(i)
				out.Facts = append(out.Facts, fact)
			}

			if hasPolicy {
				snapshot := newPolicy(opts, employee, period)
				fillPolicy(&snapshot, frame, row, nameCol, layout, heuristicPolicyColumns)
				snapshot.SourceSheet = sheet.Name
				snapshot.SourceRowRange = strconv.Itoa(row.Number)
				snapshot.SnapshotHash = snapshot.ComputeHash()
				out.Policies = append(out.Policies, snapshot)
			}
		}
	}
	return out, nil
}
