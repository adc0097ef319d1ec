package detect

import (
	"testing"

	"github.com/Veraticus/payflow/internal/tabular"
	"github.com/Veraticus/payflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	tests := []struct {
		name   string
		want   Schema
		header []string
		ok     bool
	}{
		{"fact table", SchemaFactTable, []string{"metric_code", "employee_name", "metric_value"}, true},
		{"fact table mixed case", SchemaFactTable, []string{"Employee_Name", "Metric_Code"}, true},
		{"policy table", SchemaPolicyTable, []string{"employee_name_norm", "period_month", "mode", "base_amount"}, true},
		{"policy sheet", SchemaPolicySheet, []string{"姓名", "模式", "基本工资"}, true},
		{"roster by two keywords", SchemaRosterSheet, []string{"姓名", "个人比例", "公司比例", "最低基数", "最高基数", "入职日期"}, true},
		{"roster by personal ratio and signal", SchemaRosterSheet, []string{"姓名", "个人缴费", "单位缴纳"}, true},
		{"roster by id number", SchemaRosterSheet, []string{"姓名", "身份证号", "缴费基数"}, true},
		{"single ratio is not roster", SchemaUnknown, []string{"姓名", "月薪", "平日加班费率", "周末加班费率", "社保个人比例", "餐补津贴"}, false},
		{"aggregate", SchemaTimesheetAggregate, []string{"序号", "部门", "姓名", "工作日标准工时", "工作日加班工时", "周末节假日打卡工时", "当月工时（已公式加和）", "确认工时"}, true},
		{"personal daily table", SchemaTimesheetPersonal, []string{"日期", "标准工时", "加班工时", "周末节假日打卡工时", "总工时"}, true},
		{"personal columnar", SchemaTimesheetPersonal, []string{"姓名", "月份", "日期", "标准工时", "加班工时", "总工时"}, true},
		{"blank", SchemaUnknown, []string{"", " "}, false},
		{"unrelated", SchemaUnknown, []string{"foo", "bar"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Header(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSheetRetriesLaterRowsAsHeader(t *testing.T) {
	sheet := tabular.Sheet{Name: "月度工时", Rows: [][]string{
		{"填报单位", "卓迈科技"},
		{"月份", "2025-04"},
		{},
		{"序号", "部门", "姓名", "工作日标准工时", "确认工时"},
		{"1", "生产部", "赵六", "150", "178"},
	}}

	schema, ok := Sheet(sheet)
	require.True(t, ok)
	assert.Equal(t, SchemaTimesheetAggregate, schema)
}

func TestSheetGivesUpAfterSampleRows(t *testing.T) {
	rows := make([][]string, 0, SampleRows+3)
	for i := 0; i < SampleRows+2; i++ {
		rows = append(rows, []string{"x"})
	}
	rows = append(rows, []string{"姓名", "模式", "基本工资"})

	_, ok := Sheet(tabular.Sheet{Name: "late", Rows: rows})
	assert.False(t, ok)
}

func TestDetectWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteXLSX(t, dir, "policy.xlsx",
		testutil.SheetSpec{Name: "说明", Rows: [][]any{{"本表为薪资口径"}}},
		testutil.SheetSpec{Name: "薪资", Rows: [][]any{
			{"姓名", "模式", "基本工资", "工作日加班费率"},
			{"李四", "SALARIED", 12000, 50},
		}},
	)

	got, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, Result{Schema: SchemaPolicySheet, Sheet: "薪资"}, got)
}

func TestDetectPersonalWithMetadata(t *testing.T) {
	path := testutil.WriteXLSX(t, t.TempDir(), "personal.xlsx", testutil.SheetSpec{
		Name: "工时",
		Rows: [][]any{
			{"姓名", "张三"},
			{"月份", "2025-09"},
			{},
			{"日期", "标准工时", "加班工时", "周末节假日打卡工时", "总工时"},
			{"2025-09-01", 8, 2, 0, 10},
		},
	})

	got, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, SchemaTimesheetPersonal, got.Schema)
}

func TestDetectCSV(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "roster.csv", [][]string{
		{"姓名", "个人比例", "公司比例", "最低基数", "最高基数", "月份"},
		{"张三", "0.08", "0.1", "5000", "20000", "2025-03"},
	})

	got, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, SchemaRosterSheet, got.Schema)
	assert.Equal(t, "roster", got.Sheet)
}

func TestDetectBySuffix(t *testing.T) {
	tests := []struct {
		path        string
		want        Schema
		requiresOCR bool
	}{
		{"payload.json", SchemaJSONPayload, false},
		{"receipt.PNG", SchemaImageDocument, true},
		{"scan.jpeg", SchemaImageDocument, true},
		{"contract.pdf", SchemaUnstructuredDocument, true},
		{"notes.docx", SchemaUnstructuredDocument, true},
		{"readme.md", SchemaTextDocument, false},
		{"archive.zip", SchemaUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Detect(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Schema)
			assert.Equal(t, tt.requiresOCR, got.RequiresOCR)
		})
	}
}

func TestDetectMalformedWorkbook(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "broken.xlsx", []byte("not a zip"))

	got, err := Detect(path)
	require.Error(t, err)
	assert.Equal(t, SchemaUnknown, got.Schema)
}
