package extract

import (
	"strconv"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/tabular"
)

var (
	rosterEmployeeRatio = []string{"个人比例", "个人缴费", "个人%", "个人缴纳"}
	rosterEmployerRatio = []string{"公司比例", "单位比例", "公司缴费", "单位缴纳"}
	rosterBaseMin       = []string{"最低基数", "下限", "最小基数"}
	rosterBaseMax       = []string{"最高基数", "上限", "最大基数"}
)

// Roster extracts social security ratios and contribution base bounds. Each
// snapshot carries only social_security_json and is meant to be merged with
// a snapshot from a policy source; rows without any of that data are
// skipped.
func Roster(book *tabular.Workbook, opts Options) (Output, error) {
	sheet, err := pickSheet(book, opts)
	if err != nil {
		return Output{}, err
	}

	header := sheet.FindHeaderRow(nameKeywords, SampleRows)
	if header < 0 {
		return Output{}, nil
	}
	frame := sheet.Frame(header)
	nameCol := frame.Column(nameKeywords...)
	employeeCol := frame.Column(rosterEmployeeRatio...)
	employerCol := frame.Column(rosterEmployerRatio...)
	minCol := frame.Column(rosterBaseMin...)
	maxCol := frame.Column(rosterBaseMax...)
	periodCol := frame.Column("月份", "期间", "period")

	out := Output{}
	for _, row := range frame.Rows {
		employee := employeeCell(row, nameCol)
		if employee == "" {
			continue
		}

		ss := make(map[string]model.Tree)
		if v, ok := decimalAt(row, employeeCol); ok {
			ss["employee"] = model.Number(v)
		}
		if v, ok := decimalAt(row, employerCol); ok {
			ss["employer"] = model.Number(v)
		}
		base := make(map[string]model.Tree)
		if v, ok := decimalAt(row, minCol); ok {
			base["min"] = model.Number(v)
		}
		if v, ok := decimalAt(row, maxCol); ok {
			base["max"] = model.Number(v)
		}
		if len(base) > 0 {
			ss["base"] = model.Map(base)
		}
		if len(ss) == 0 {
			continue
		}

		period := row.Value(periodCol)
		if period == "" {
			period = opts.period()
		}
		snapshot := newPolicy(opts, employee, period)
		snapshot.SocialSecurity = model.Map(ss)
		snapshot.RawSnapshot = frame.Record(row)
		snapshot.SourceSheet = sheet.Name
		snapshot.SourceRowRange = strconv.Itoa(row.Number)
		snapshot.SnapshotHash = snapshot.ComputeHash()
		out.Policies = append(out.Policies, snapshot)
	}
	return out, nil
}
