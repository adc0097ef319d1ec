package extract

import (
	"strconv"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/tabular"
)

// SampleRows bounds header searches below the first row.
const SampleRows = 20

// policyColumns holds the keyword sets used to locate policy fields.
type policyColumns struct {
	mode, base, rate, period []string
	otRateWD, otRateWE       []string
	otMultWD, otMultWE       []string
	allowance, deduction     []string
	ssEmployee, ssEmployer   []string

	// reclassify turns a salaried row that carries only an hourly rate
	// into an hourly one.
	reclassify bool
}

var sheetPolicyColumns = policyColumns{
	mode:       []string{"模式", "计薪方式", "mode"},
	base:       []string{"基本工资", "底薪", "岗位工资", "薪级", "固定工资"},
	rate:       []string{"时薪", "hourly", "基准时薪"},
	period:     []string{"月份", "期间", "period"},
	otRateWD:   []string{"工作日加班费率", "平日加班费率", "工作日加班时薪"},
	otRateWE:   []string{"周末加班费率", "节假日加班费率", "周末加班时薪"},
	otMultWD:   []string{"工作日加班倍率", "平日加班倍率"},
	otMultWE:   []string{"周末加班倍率", "节假日加班倍率"},
	allowance:  []string{"津贴", "补贴", "allowance"},
	deduction:  []string{"扣款", "罚款", "deduction"},
	ssEmployee: []string{"社保个人比例", "公积金个人比例", "个人缴费比例"},
	ssEmployer: []string{"社保公司比例", "公积金公司比例", "公司缴费比例"},
	reclassify: true,
}

// policyLayout is a frame's resolved policy columns; -1 means absent.
type policyLayout struct {
	mode, base, rate, period int
	otRateWD, otRateWE       int
	otMultWD, otMultWE       int
	ssEmployee, ssEmployer   int
}

func (pc policyColumns) resolve(f tabular.Frame, find func(tabular.Frame, []string) int) policyLayout {
	return policyLayout{
		mode:       find(f, pc.mode),
		base:       find(f, pc.base),
		rate:       find(withoutOvertime(f), pc.rate),
		period:     find(f, pc.period),
		otRateWD:   find(f, pc.otRateWD),
		otRateWE:   find(f, pc.otRateWE),
		otMultWD:   find(f, pc.otMultWD),
		otMultWE:   find(f, pc.otMultWE),
		ssEmployee: find(f, pc.ssEmployee),
		ssEmployer: find(f, pc.ssEmployer),
	}
}

// withoutOvertime blanks overtime headers so that base rate keywords such as
// 时薪 cannot resolve to an overtime rate column.
func withoutOvertime(f tabular.Frame) tabular.Frame {
	header := make([]string, len(f.Header))
	for i, h := range f.Header {
		if !tabular.ContainsAny(h, []string{"加班", "overtime"}) {
			header[i] = h
		}
	}
	f.Header = header
	return f
}

func keywordMajor(f tabular.Frame, keywords []string) int { return f.Column(keywords...) }

func columnMajor(f tabular.Frame, keywords []string) int { return f.FirstColumn(keywords...) }

// PolicySheet extracts one policy snapshot per employee row. Rows whose mode
// is salaried but which carry only an hourly rate are reclassified hourly.
func PolicySheet(book *tabular.Workbook, opts Options) (Output, error) {
	sheet, err := pickSheet(book, opts)
	if err != nil {
		return Output{}, err
	}

	header := sheet.FindHeaderRow([]string{"姓名", "员工", "employee"}, SampleRows)
	if header < 0 {
		return Output{}, nil
	}
	frame := sheet.Frame(header)
	nameCol := frame.Column("姓名", "员工", "employee")
	layout := sheetPolicyColumns.resolve(frame, keywordMajor)

	out := Output{}
	for _, row := range frame.Rows {
		employee := employeeCell(row, nameCol)
		if employee == "" {
			continue
		}
		period := row.Value(layout.period)
		if period == "" {
			period = opts.period()
		}
		snapshot := newPolicy(opts, employee, period)
		fillPolicy(&snapshot, frame, row, nameCol, layout, sheetPolicyColumns)
		snapshot.SourceSheet = sheet.Name
		snapshot.SourceRowRange = strconv.Itoa(row.Number)
		snapshot.SnapshotHash = snapshot.ComputeHash()
		out.Policies = append(out.Policies, snapshot)
	}
	return out, nil
}

// fillPolicy populates a snapshot from one row. It is shared by the policy
// sheet and heuristic extractors, which differ only in keyword sets and
// column search order.
func fillPolicy(p *model.PolicySnapshot, frame tabular.Frame, row tabular.Row, nameCol int, layout policyLayout, kw policyColumns) {
	if layout.mode >= 0 {
		if mode, err := model.ParseMode(row.Value(layout.mode)); err == nil {
			p.Mode = mode
		}
	}

	base := nullDecimalAt(row, layout.base)
	rate := nullDecimalAt(row, layout.rate)
	switch {
	case p.Mode == model.ModeSalaried && base.Valid:
		p.BaseAmount = base
	case p.Mode == model.ModeHourly && rate.Valid:
		p.BaseRate = rate
	case p.Mode == model.ModeSalaried && rate.Valid && kw.reclassify:
		p.Mode = model.ModeHourly
		p.BaseRate = rate
	}

	p.OTWeekdayRate = nullDecimalAt(row, layout.otRateWD)
	p.OTWeekendRate = nullDecimalAt(row, layout.otRateWE)
	p.OTWeekdayMultiplier = nullDecimalAt(row, layout.otMultWD)
	p.OTWeekendMultiplier = nullDecimalAt(row, layout.otMultWE)

	allowances := make(map[string]model.Tree)
	deductions := make(map[string]model.Tree)
	for i, label := range frame.Header {
		if i == nameCol || label == "" {
			continue
		}
		value, ok := decimalAt(row, i)
		if !ok {
			continue
		}
		if tabular.ContainsAny(label, kw.allowance) {
			allowances[label] = model.Number(value)
		}
		if tabular.ContainsAny(label, kw.deduction) {
			deductions[label] = model.Number(value)
		}
	}
	if len(allowances) > 0 {
		p.Allowances = model.Map(map[string]model.Tree{"fixed": model.Map(allowances)})
	}
	if len(deductions) > 0 {
		p.Deductions = model.Map(map[string]model.Tree{"fixed": model.Map(deductions)})
	}

	ss := make(map[string]model.Tree)
	if v, ok := decimalAt(row, layout.ssEmployee); ok {
		ss["employee"] = model.Number(v)
	}
	if v, ok := decimalAt(row, layout.ssEmployer); ok {
		ss["employer"] = model.Number(v)
	}
	if len(ss) > 0 {
		p.SocialSecurity = model.Map(ss)
	}

	p.RawSnapshot = frame.Record(row)
}
