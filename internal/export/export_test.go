package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/tabular"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixtureResults() []model.PayrollResult {
	return []model.PayrollResult{
		{
			EmployeeNameNorm:       "李四",
			PeriodMonth:            "2025-03",
			BasePay:                d("6720"),
			OTPay:                  d("240"),
			GrossPay:               d("6960"),
			SocialSecurityPersonal: d("0"),
			Tax:                    d("58.80"),
			NetPay:                 d("6901.2"),
			RuleVersion:            model.RuleVersion,
			SourceFiles:            []string{"hours.xlsx"},
		},
		{
			EmployeeNameNorm:       "张三",
			PeriodMonth:            "2025-03",
			BasePay:                d("10000"),
			OTPay:                  d("0"),
			AllowancesSum:          d("500"),
			GrossPay:               d("10500"),
			SocialSecurityPersonal: d("1050"),
			Tax:                    d("235"),
			NetPay:                 d("9215"),
			SnapshotHash:           "abc",
			RuleVersion:            model.RuleVersion,
			SourceFiles:            []string{"hours.xlsx", "policy.xlsx"},
		},
	}
}

func TestWriteBankCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBankCSV(&buf, fixtureResults()))

	assert.Equal(t, "employee,amount,period\n"+
		"张三,9215.00,2025-03\n"+
		"李四,6901.20,2025-03\n", buf.String())
}

func TestWriteTaxCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTaxCSV(&buf, fixtureResults()))

	sheet, err := tabular.ReadCSV(&buf, "tax")
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, TaxColumns, sheet.Rows[0])
	assert.Equal(t, []string{
		"张三", "2025-03", "10500.00", "9215.00", "10000.00", "0.00",
		"500.00", "0.00", "1050.00", "235.00", "abc", "rules_v1", "hours.xlsx;policy.xlsx",
	}, sheet.Rows[1])
}

func TestSummarize(t *testing.T) {
	s := Summarize("2025-03", "2025-03", fixtureResults())
	assert.Equal(t, 2, s.Employees)
	assert.Equal(t, "17460", s.Gross.String())
	assert.Equal(t, "16116.2", s.Net.String())
	assert.Equal(t, "293.8", s.Tax.String())
	assert.Equal(t, "1050", s.SocialSecurity.String())
	assert.Equal(t, model.RuleVersion, s.RuleVersion)
}

func TestWriteFileXLSX(t *testing.T) {
	results := fixtureResults()
	path := filepath.Join(t.TempDir(), "reports", FormatXLSX.Filename("2025-03"))

	require.NoError(t, WriteFile(path, FormatXLSX, results, Summarize("2025-03", "2025-03", results)))

	book, err := tabular.Open(path)
	require.NoError(t, err)
	require.Len(t, book.Sheets, 2)

	summary, ok := book.Sheet(SummarySheet)
	require.True(t, ok)
	assert.Equal(t, "2025-03", summary.Cell(0, 1))
	assert.Equal(t, "2", summary.Cell(4, 1))

	detail, ok := book.Sheet(DetailSheet)
	require.True(t, ok)
	require.Len(t, detail.Rows, 3)
	assert.Equal(t, "张三", detail.Cell(1, 0))
	assert.Equal(t, "9215", detail.Cell(1, 9))
	assert.Equal(t, "李四", detail.Cell(2, 0))
}

func TestWriteFileCSVFormats(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []Format{FormatBank, FormatTax} {
		path := filepath.Join(dir, f.Filename("2025-03"))
		require.NoError(t, WriteFile(path, f, fixtureResults(), nil))
		assert.FileExists(t, path)
	}
	assert.Equal(t, "bank_payroll_2025-03.csv", FormatBank.Filename("2025-03"))
	assert.Equal(t, "tax_import_2025-03.csv", FormatTax.Filename("2025-03"))
}

func TestParseFormat(t *testing.T) {
	got, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, got)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
