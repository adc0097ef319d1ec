package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/payflow/internal/detect"
	"github.com/Veraticus/payflow/internal/extract"
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/ocr"
	"github.com/Veraticus/payflow/internal/storage"
	"github.com/Veraticus/payflow/internal/testutil"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testWorkspace = "2025-09"

type harness struct {
	store  *storage.SQLiteStorage
	files  *workspace.Files
	svc    *workspace.Service
	worker *Worker
	dir    string
}

func newHarness(t *testing.T, config Config) *harness {
	t.Helper()

	db := testutil.SetupTestDB(t)
	files := workspace.NewFiles(filepath.Join(t.TempDir(), "workspaces"))
	svc := workspace.NewService(db.Storage, files)
	_, err := svc.Create(context.Background(), testWorkspace)
	require.NoError(t, err)

	return &harness{
		store:  db.Storage,
		files:  files,
		svc:    svc,
		worker: NewWithConfig(db.Storage, files, svc, config),
		dir:    t.TempDir(),
	}
}

func (h *harness) facts(t *testing.T) []model.FactRecord {
	t.Helper()
	facts, err := h.store.ListFacts(context.Background(), testWorkspace)
	require.NoError(t, err)
	return facts
}

func (h *harness) requirements(t *testing.T) map[string]model.Requirement {
	t.Helper()
	reqs, err := h.store.GetRequirements(context.Background(), testWorkspace)
	require.NoError(t, err)
	return reqs
}

func personalSheet() testutil.SheetSpec {
	return testutil.SheetSpec{
		Name: "工时",
		Rows: [][]any{
			{"姓名", "张三"},
			{"月份", "九月"},
			{},
			{"日期", "标准工时", "加班工时", "周末节假日打卡工时", "总工时"},
			{"2025-09-01", 8, 2, 0, 10},
			{"2025-09-06", 0, 0, 6, 6},
		},
	}
}

func TestJobLifecycle(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	path := testutil.WriteXLSX(t, h.dir, "personal.xlsx", personalSheet())

	job, err := h.worker.Enqueue(ctx, testWorkspace, path)
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, job.Status)
	assert.Equal(t, "personal.xlsx", job.Filename)

	job, err = h.worker.Process(ctx, job, path)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)

	stored, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, stored.Status)
	assert.Equal(t, string(detect.SchemaTimesheetPersonal), stored.Schema)
	assert.Equal(t, 4, stored.FactsAdded)
	assert.Empty(t, stored.Error)

	// A completed job cannot be processed again.
	_, err = h.worker.Process(ctx, job, path)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)
}

func TestIngestPersonalTimesheet(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteXLSX(t, h.dir, "personal.xlsx", personalSheet())

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)

	facts := h.facts(t)
	require.Len(t, facts, 4)
	for _, f := range facts {
		assert.Equal(t, "张三", f.EmployeeNameNorm)
		assert.Equal(t, "2025-09", f.PeriodMonth, "九月 normalizes against the workspace year")
		assert.Equal(t, "personal.xlsx", f.SourceFile)
		assert.Equal(t, job.ID, f.IngestJobID)
		assert.Len(t, f.SourceSHA256, 64)
		assert.Len(t, f.RawTextHash, 64)
	}
	assert.NotEqual(t, facts[0].RawTextHash, facts[1].RawTextHash)

	reqs := h.requirements(t)
	assert.Equal(t, job.ID, reqs[workspace.RequirementTimesheetDetail].JobID)

	assert.FileExists(t, filepath.Join(h.files.Path(testWorkspace, workspace.ZoneRaw), "personal.xlsx"))
	assert.FileExists(t, filepath.Join(h.files.Path(testWorkspace, workspace.ZoneFact), job.ID+"_facts.csv"))
}

func TestIngestPersonalDateFormattedMonth(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	sheet := personalSheet()
	sheet.Rows[1] = []any{"月份", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)}
	path := testutil.WriteXLSX(t, h.dir, "personal.xlsx", sheet)

	_, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)

	facts := h.facts(t)
	require.NotEmpty(t, facts)
	for _, f := range facts {
		assert.Equal(t, "2025-08", f.PeriodMonth)
	}
}

func TestIngestHeuristicFallback(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteXLSX(t, h.dir, "salary.xlsx", testutil.SheetSpec{
		Name: "薪资",
		Rows: [][]any{
			{"姓名", "月薪", "平日加班费率", "周末加班费率", "社保个人比例", "餐补津贴"},
			{"王五", 9000, 45, 70, 0.08, 150},
		},
	})

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)
	assert.Equal(t, string(detect.SchemaUnknown), job.Schema)
	assert.Equal(t, 2, job.FactsAdded)
	assert.Equal(t, 1, job.PoliciesAdded)

	policies, err := h.store.ListPolicies(context.Background(), testWorkspace)
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "9000", policies[0].BaseAmount.Decimal.String())
	assert.Equal(t, "salary.xlsx", policies[0].SourceFile)

	reqs := h.requirements(t)
	assert.Contains(t, reqs, workspace.RequirementTimesheetDetail)
	assert.Contains(t, reqs, workspace.RequirementPolicyRules)
	assert.FileExists(t, filepath.Join(h.files.Path(testWorkspace, workspace.ZonePolicy), job.ID+"_policy.csv"))
}

func TestIngestTemplateSuppressesDuplicateHeuristicFacts(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteXLSX(t, h.dir, "aggregate.xlsx", testutil.SheetSpec{
		Name: "月度工时",
		Rows: [][]any{
			{"序号", "部门", "姓名", "工作日标准工时", "确认工时"},
			{1, "生产部", "赵六", 150, 178},
		},
	})

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)
	assert.Equal(t, string(detect.SchemaTimesheetAggregate), job.Schema)

	seen := make(map[model.FactKey]int)
	for _, f := range h.facts(t) {
		seen[f.Key()]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "duplicate fact %v", key)
	}
}

func sumMetric(facts []model.FactRecord, code model.MetricCode) decimal.Decimal {
	sum := decimal.Zero
	for _, f := range facts {
		if f.MetricCode == code {
			sum = sum.Add(f.MetricValue)
		}
	}
	return sum
}

func TestIngestHeuristicRowsAccumulate(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteXLSX(t, h.dir, "allowances.xlsx", testutil.SheetSpec{
		Name: "津贴",
		Rows: [][]any{
			{"姓名", "项目", "津贴"},
			{"张三", "A", 100},
			{"张三", "B", 200},
		},
	})

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)
	assert.Equal(t, string(detect.SchemaUnknown), job.Schema)
	assert.Equal(t, 2, job.FactsAdded)
	assert.Equal(t, "300", sumMetric(h.facts(t), model.MetricAmountAllow).String())
}

func TestIngestColumnarPersonalCountsHoursOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteXLSX(t, h.dir, "hours.xlsx", testutil.SheetSpec{
		Name: "工时",
		Rows: [][]any{
			{"姓名", "日期", "标准工时"},
			{"张三", "2025-09-01", 8},
			{"张三", "2025-09-02", 8},
		},
	})

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)
	assert.Equal(t, string(detect.SchemaTimesheetPersonal), job.Schema)

	facts := h.facts(t)
	require.Len(t, facts, 1)
	assert.Equal(t, extract.PersonalLabel, facts[0].MetricLabel)
	assert.Equal(t, "C", facts[0].SourceCol)
	assert.Equal(t, "16", sumMetric(facts, model.MetricHourStd).String())
}

func TestIngestUnparsedPlaceholder(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, dir string) string
	}{
		{"no recognizable columns", func(t *testing.T, dir string) string {
			return testutil.WriteXLSX(t, dir, "notes.xlsx", testutil.SheetSpec{
				Name: "说明",
				Rows: [][]any{{"foo", "bar"}, {"baz", "qux"}},
			})
		}},
		{"legacy binary workbook", func(t *testing.T, dir string) string {
			return testutil.WriteFile(t, dir, "old.xls", []byte("not a workbook"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultConfig())
			job, err := h.worker.Ingest(context.Background(), testWorkspace, tt.write(t, h.dir))
			require.NoError(t, err)
			assert.Equal(t, model.JobCompleted, job.Status)

			facts := h.facts(t)
			require.Len(t, facts, 1)
			f := facts[0]
			assert.Equal(t, UnparsedLabel, f.EmployeeNameNorm)
			assert.Equal(t, UnparsedLabel, f.MetricLabel)
			assert.Equal(t, model.MetricHourTotal, f.MetricCode)
			assert.True(t, f.MetricValue.IsZero())
			assert.True(t, f.Confidence.IsZero())
		})
	}
}

func TestIngestCanonicalCSV(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteCSV(t, h.dir, "facts.csv", [][]string{
		{"Employee_Name", "Period_Month", "Metric_Code", "Metric_Value"},
		{"张三", "八月-Aug", "HOUR_TOTAL", "160"},
		{"张三", "2025-09", "AMOUNT_BASE", "10000"},
	})

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)
	assert.Equal(t, string(detect.SchemaFactTable), job.Schema)

	facts := h.facts(t)
	require.Len(t, facts, 2)
	assert.Equal(t, "2025-08", facts[0].PeriodMonth)
	assert.Equal(t, "2025-09", facts[1].PeriodMonth)
}

func TestIngestCSVMissingColumns(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteCSV(t, h.dir, "other.csv", [][]string{
		{"employee", "hours"},
		{"张三", "160"},
	})

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.ErrorIs(t, err, extract.ErrMissingColumn)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Contains(t, job.Error, "metric_code or mode")
	assert.Empty(t, h.facts(t))
}

func TestIngestValidationKeepsValidPrefix(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteCSV(t, h.dir, "facts.csv", [][]string{
		{"employee_name", "metric_code", "metric_value"},
		{"张三", "HOUR_TOTAL", "160"},
		{"李四", "HOUR_TOTAL", "800"},
		{"王五", "HOUR_TOTAL", "150"},
	})

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.ErrorIs(t, err, model.ErrHourOutOfRange)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Equal(t, 1, job.FactsAdded)

	facts := h.facts(t)
	require.Len(t, facts, 1)
	assert.Equal(t, "张三", facts[0].EmployeeNameNorm)
	assert.Empty(t, h.requirements(t))
}

func TestIngestJSONPayload(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteFile(t, h.dir, "payload.json", []byte(`{
		"records": [{"employee_name": "张三", "metric_code": "HOUR_TOTAL", "metric_value": 168}],
		"policy": [{"employee_name_norm": "张三", "mode": "SALARIED", "base_amount": 10000}]
	}`))

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)
	assert.Equal(t, string(detect.SchemaJSONPayload), job.Schema)
	assert.Equal(t, 1, job.FactsAdded)
	assert.Equal(t, 1, job.PoliciesAdded)

	policies, err := h.store.ListPolicies(context.Background(), testWorkspace)
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.NotEmpty(t, policies[0].SnapshotHash)
	assert.Equal(t, testWorkspace, policies[0].PeriodMonth)
}

type stubOCR struct {
	result ocr.Result
	err    error
}

func (s stubOCR) Extract(context.Context, string) (ocr.Result, error) {
	return s.result, s.err
}

func TestIngestImageDocument(t *testing.T) {
	config := DefaultConfig()
	config.OCR = stubOCR{result: ocr.Result{
		Text:       "张三 160",
		Table:      [][]string{{"张三", "160"}},
		Confidence: model.NewNullDecimal(decimal.RequireFromString("0.92")),
		Metadata:   map[string]any{"provider": "stub"},
	}}
	h := newHarness(t, config)
	path := testutil.WriteFile(t, h.dir, "scan.png", []byte("\x89PNG"))

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)
	assert.Equal(t, string(detect.SchemaImageDocument), job.Schema)
	assert.Zero(t, job.FactsAdded)
	assert.Empty(t, h.facts(t))

	docs, err := h.store.ListDocuments(context.Background(), testWorkspace)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, "scan.png", doc.SourceFile)
	assert.True(t, doc.RequiresOCR)
	assert.Equal(t, "张三 160", doc.Text)
	assert.Equal(t, [][]string{{"张三", "160"}}, doc.Table)
	assert.Equal(t, "0.92", doc.Confidence.Decimal.String())
	assert.Equal(t, job.ID, doc.IngestJobID)

	assert.FileExists(t, filepath.Join(h.files.Path(testWorkspace, workspace.ZoneDocuments), "scan.png"))
	data, err := os.ReadFile(filepath.Join(h.files.Path(testWorkspace, workspace.ZoneOCR), "scan.png.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"provider": "stub"`)
}

func TestIngestDocumentWithNoopOCR(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteFile(t, h.dir, "contract.pdf", []byte("%PDF-1.4"))

	_, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.NoError(t, err)

	docs, err := h.store.ListDocuments(context.Background(), testWorkspace)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Text)
	reason, ok := docs[0].OCRMetadata.Get("reason")
	require.True(t, ok)
	assert.Equal(t, "OCR integration not configured", reason.Text())
}

func TestIngestUnsupportedFile(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	path := testutil.WriteFile(t, h.dir, "archive.zip", []byte("PK"))

	job, err := h.worker.Ingest(context.Background(), testWorkspace, path)
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, model.JobFailed, job.Status)
}
