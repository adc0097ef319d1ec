// Package export writes payroll results in the formats downstream systems
// import: a bank payroll CSV, a tax bureau CSV and an xlsx report.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/service"
	"github.com/shopspring/decimal"
)

// ErrUnknownFormat is returned for an unrecognised export format.
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an export target.
type Format string

// Export formats.
const (
	FormatBank Format = "bank"
	FormatTax  Format = "tax"
	FormatXLSX Format = "xlsx"
)

// Formats lists every file format in display order.
var Formats = []Format{FormatBank, FormatTax, FormatXLSX}

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Filename is the default file name for a period export.
func (f Format) Filename(period string) string {
	switch f {
	case FormatBank:
		return fmt.Sprintf("bank_payroll_%s.csv", period)
	case FormatTax:
		return fmt.Sprintf("tax_import_%s.csv", period)
	default:
		return fmt.Sprintf("payroll_%s.xlsx", period)
	}
}

// Summarize totals results for one period.
func Summarize(workspaceID, period string, results []model.PayrollResult) *service.PayrollSummary {
	s := &service.PayrollSummary{
		WorkspaceID: workspaceID,
		Period:      period,
		RuleVersion: model.RuleVersion,
		Employees:   len(results),
	}
	for _, r := range results {
		s.Gross = s.Gross.Add(r.GrossPay)
		s.Net = s.Net.Add(r.NetPay)
		s.Tax = s.Tax.Add(r.Tax)
		s.SocialSecurity = s.SocialSecurity.Add(r.SocialSecurityPersonal)
		s.Allowances = s.Allowances.Add(r.AllowancesSum)
		s.Deductions = s.Deductions.Add(r.DeductionsSum)
		if r.RuleVersion != "" {
			s.RuleVersion = r.RuleVersion
		}
	}
	return s
}

// WriteFile exports results to path in format f, creating parent
// directories.
func WriteFile(path string, f Format, results []model.PayrollResult, summary *service.PayrollSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if f == FormatXLSX {
		return WriteXLSX(path, results, summary)
	}

	out, err := os.Create(path) // #nosec G304 -- export destination chosen by the operator
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	switch f {
	case FormatBank:
		err = WriteBankCSV(out, results)
	case FormatTax:
		err = WriteTaxCSV(out, results)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// WriteBankCSV writes the bank payroll file: one net amount per employee.
func WriteBankCSV(w io.Writer, results []model.PayrollResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range sorted(results) {
		rows = append(rows, []string{r.EmployeeNameNorm, money(r.NetPay), r.PeriodMonth})
	}
	return writeCSV(w, []string{"employee", "amount", "period"}, rows)
}

// TaxColumns is the header of the tax bureau file.
var TaxColumns = []string{
	"employee_name_norm", "period_month", "gross_pay", "net_pay", "base_pay", "ot_pay",
	"allowances_sum", "deductions_sum", "social_security_personal", "tax",
	"snapshot_hash", "rule_version", "source_files",
}

// WriteTaxCSV writes the tax bureau file with every result field.
func WriteTaxCSV(w io.Writer, results []model.PayrollResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range sorted(results) {
		rows = append(rows, []string{
			r.EmployeeNameNorm,
			r.PeriodMonth,
			money(r.GrossPay),
			money(r.NetPay),
			money(r.BasePay),
			money(r.OTPay),
			money(r.AllowancesSum),
			money(r.DeductionsSum),
			money(r.SocialSecurityPersonal),
			money(r.Tax),
			r.SnapshotHash,
			r.RuleVersion,
			strings.Join(r.SourceFiles, ";"),
		})
	}
	return writeCSV(w, TaxColumns, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// sorted orders results by period and employee without touching the input.
func sorted(results []model.PayrollResult) []model.PayrollResult {
	out := make([]model.PayrollResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PeriodMonth != out[j].PeriodMonth {
			return out[i].PeriodMonth < out[j].PeriodMonth
		}
		return out[i].EmployeeNameNorm < out[j].EmployeeNameNorm
	})
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
