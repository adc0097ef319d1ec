package tabular

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/payflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"160", "160", true},
		{" 12,000.50 ", "12000.5", true},
		{"8%", "0.08", true},
		{"12.5 %", "0.125", true},
		{"￥3000", "3000", true},
		{"１２３", "123", true},
		{"", "0", false},
		{"%", "0", false},
		{"n/a", "0", false},
		{"NaN", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDecimal(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestReadCSVStripsBOM(t *testing.T) {
	sheet, err := ReadCSV(strings.NewReader("\ufeff姓名,工时\n张三, 8 \n"), "hours")
	require.NoError(t, err)

	assert.Equal(t, "hours", sheet.Name)
	assert.Equal(t, "姓名", sheet.Cell(0, 0))
	assert.Equal(t, "8", sheet.Cell(1, 1))
	assert.Equal(t, "", sheet.Cell(5, 5))
}

func TestOpenXLSX(t *testing.T) {
	path := testutil.WriteXLSX(t, t.TempDir(), "book.xlsx",
		testutil.SheetSpec{Name: "first", Rows: [][]any{{"姓名", "工时"}, {"张三", 8}}},
		testutil.SheetSpec{Name: "second", Rows: [][]any{{"a"}}},
	)

	book, err := Open(path)
	require.NoError(t, err)
	require.Len(t, book.Sheets, 2)

	first, ok := book.Sheet("")
	require.True(t, ok)
	assert.Equal(t, "first", first.Name)
	assert.Equal(t, "8", first.Cell(1, 1))

	second, ok := book.Sheet("second")
	require.True(t, ok)
	assert.Equal(t, "a", second.Cell(0, 0))

	_, ok = book.Sheet("missing")
	assert.False(t, ok)
}

func TestOpenXLSXFormatsDateCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"月份", 45870, 45870, 45870, 45870}))
	require.NoError(t, f.SetCellValue("Sheet1", "F1", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))

	builtin, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "B1", "B1", builtin))

	chinese := `yyyy"年"m"月"`
	custom, err := f.NewStyle(&excelize.Style{CustomNumFmt: &chinese})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "C1", "C1", custom))

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "D1", "D1", money))

	require.NoError(t, f.SaveAs(path))

	book, err := Open(path)
	require.NoError(t, err)
	sheet := book.Sheets[0]
	assert.Equal(t, "2025-08-01", sheet.Cell(0, 1))
	assert.Equal(t, "2025-08-01", sheet.Cell(0, 2))
	assert.Equal(t, "45870", sheet.Cell(0, 3), "number formats stay numeric")
	assert.Equal(t, "45870", sheet.Cell(0, 4), "unstyled numbers stay numeric")
	assert.Equal(t, "2025-09-01", sheet.Cell(0, 5))
}

func TestCustomDateFormat(t *testing.T) {
	assert.True(t, customDateFormat("yyyy-mm-dd"))
	assert.True(t, customDateFormat(`yyyy"年"m"月"`))
	assert.False(t, customDateFormat(`#,##0.00"元"`))
	assert.False(t, customDateFormat(`[$-804]0.00`))
	assert.False(t, customDateFormat(`0.00 "days"`))
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("legacy.xls")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFrame(t *testing.T) {
	sheet := Sheet{Name: "s", Rows: [][]string{
		{"填报单位", "卓迈科技"},
		{},
		{"序号", "姓名", "工作日标准工时", ""},
		{"1", "赵六", "150", "extra"},
		{"", "", ""},
		{"2", "钱七", "160"},
	}}

	header := sheet.FindHeaderRow([]string{"姓名"}, 20)
	require.Equal(t, 2, header)

	frame := sheet.Frame(header)
	require.Len(t, frame.Rows, 2)
	assert.Equal(t, 4, frame.Rows[0].Number)
	assert.Equal(t, 6, frame.Rows[1].Number)

	assert.Equal(t, 1, frame.Column("姓名"))
	assert.Equal(t, 2, frame.Column("missing", "标准工时"))
	assert.Equal(t, -1, frame.Column("确认工时"))
	assert.Equal(t, 1, frame.ExactColumn("姓名"))

	record := frame.Record(frame.Rows[0])
	v, ok := record.Get("姓名")
	require.True(t, ok)
	assert.Equal(t, "赵六", v.Text())
	extra, ok := record.Get("D")
	require.True(t, ok)
	assert.Equal(t, "extra", extra.Text())
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("Employee Name", []string{"name"}))
	assert.True(t, ContainsAny("当月工时（已公式加和）", []string{"当月工时"}))
	assert.False(t, ContainsAny("日期", []string{"工时", ""}))
}
