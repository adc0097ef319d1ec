package export

import (
	"fmt"
	"strings"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/service"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the xlsx report.
const (
	SummarySheet = "汇总"
	DetailSheet  = "明细"
)

// DetailHeader is the header row of the detail sheet.
var DetailHeader = []any{
	"员工", "月份", "基本工资", "加班工资", "津贴", "扣款", "应发工资",
	"社保个人", "个税", "实发工资", "口径哈希", "规则版本", "来源文件",
}

const moneyFormat = "#,##0.00"

// WriteXLSX writes a two-sheet workbook: period totals and one row per
// employee.
func WriteXLSX(path string, results []model.PayrollResult, summary *service.PayrollSummary) error {
	if summary == nil {
		summary = Summarize("", "", results)
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailSheet); err != nil {
		return fmt.Errorf("failed to add detail sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	numFmt := moneyFormat
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := writeSummarySheet(f, summary, boldStyle, moneyStyle); err != nil {
		return err
	}
	if err := writeDetailSheet(f, results, boldStyle, moneyStyle); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s *service.PayrollSummary, boldStyle, moneyStyle int) error {
	rows := [][]any{
		{"工资汇总", s.Period},
		{},
		{"工作区", s.WorkspaceID},
		{"规则版本", s.RuleVersion},
		{"人数", s.Employees},
		{"应发合计", number(s.Gross)},
		{"津贴合计", number(s.Allowances)},
		{"扣款合计", number(s.Deductions)},
		{"社保个人合计", number(s.SocialSecurity)},
		{"个税合计", number(s.Tax)},
		{"实发合计", number(s.Net)},
	}
	if err := setRows(f, SummarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "A11", boldStyle); err != nil {
		return fmt.Errorf("failed to style summary labels: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "B6", "B11", moneyStyle); err != nil {
		return fmt.Errorf("failed to style summary totals: %w", err)
	}
	return f.SetColWidth(SummarySheet, "A", "B", 16)
}

func writeDetailSheet(f *excelize.File, results []model.PayrollResult, boldStyle, moneyStyle int) error {
	rows := make([][]any, 0, len(results)+1)
	rows = append(rows, DetailHeader)
	for _, r := range sorted(results) {
		rows = append(rows, []any{
			r.EmployeeNameNorm,
			r.PeriodMonth,
			number(r.BasePay),
			number(r.OTPay),
			number(r.AllowancesSum),
			number(r.DeductionsSum),
			number(r.GrossPay),
			number(r.SocialSecurityPersonal),
			number(r.Tax),
			number(r.NetPay),
			r.SnapshotHash,
			r.RuleVersion,
			strings.Join(r.SourceFiles, ";"),
		})
	}
	if err := setRows(f, DetailSheet, rows); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(DetailHeader))
	if err != nil {
		return fmt.Errorf("failed to resolve header width: %w", err)
	}
	if err := f.SetCellStyle(DetailSheet, "A1", last+"1", boldStyle); err != nil {
		return fmt.Errorf("failed to style detail header: %w", err)
	}
	if len(results) > 0 {
		end := fmt.Sprintf("J%d", len(results)+1)
		if err := f.SetCellStyle(DetailSheet, "C2", end, moneyStyle); err != nil {
			return fmt.Errorf("failed to style amounts: %w", err)
		}
	}
	return f.SetColWidth(DetailSheet, "A", "J", 12)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("invalid row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// number converts an amount for a spreadsheet cell. Amounts are already
// rounded to cents.
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
