package pipeline

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/shopspring/decimal"
)

var factAuditHeader = []string{
	"employee_name", "employee_name_norm", "period_month", "metric_code", "metric_value",
	"unit", "confidence", "metric_label", "source_file", "source_sheet", "source_row",
	"source_sha256", "raw_text_hash", "ingest_job_id",
}

var policyAuditHeader = []string{
	"employee_name_norm", "period_month", "mode", "base_amount", "base_rate",
	"ot_weekday_multiplier", "ot_weekend_multiplier", "ot_weekday_rate", "ot_weekend_rate",
	"allowances_json", "deductions_json", "tax_json", "social_security_json",
	"source_file", "source_sheet", "source_row_range", "snapshot_hash",
}

// writeAudit leaves a CSV copy of the derived records in the fact and policy
// zones. Failures are logged; the records are already stored.
func (w *Worker) writeAudit(job *model.Job, in ingestion) {
	if len(in.facts) > 0 {
		rows := make([][]string, 0, len(in.facts))
		for i := range in.facts {
			rows = append(rows, factRow(&in.facts[i]))
		}
		w.writeCSV(job, workspace.ZoneFact, job.ID+"_facts.csv", factAuditHeader, rows)
	}
	if len(in.policies) > 0 {
		rows := make([][]string, 0, len(in.policies))
		for i := range in.policies {
			rows = append(rows, policyRow(&in.policies[i]))
		}
		w.writeCSV(job, workspace.ZonePolicy, job.ID+"_policy.csv", policyAuditHeader, rows)
	}
}

func (w *Worker) writeCSV(job *model.Job, zone workspace.Zone, name string, header []string, rows [][]string) {
	if err := writeCSVFile(filepath.Join(w.files.Path(job.WorkspaceID, zone), name), header, rows); err != nil {
		slog.Warn("Failed to write audit export", "job", job.ID, "zone", zone, "error", err)
	}
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path) // #nosec G304 -- path is inside a workspace zone
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return f.Close()
}

func factRow(f *model.FactRecord) []string {
	return []string{
		f.EmployeeName,
		f.EmployeeNameNorm,
		f.PeriodMonth,
		string(f.MetricCode),
		f.MetricValue.String(),
		string(f.Unit),
		f.Confidence.String(),
		f.MetricLabel,
		f.SourceFile,
		f.SourceSheet,
		strconv.Itoa(f.SourceRow),
		f.SourceSHA256,
		f.RawTextHash,
		f.IngestJobID,
	}
}

func policyRow(p *model.PolicySnapshot) []string {
	return []string{
		p.EmployeeNameNorm,
		p.PeriodMonth,
		string(p.Mode),
		nullString(p.BaseAmount),
		nullString(p.BaseRate),
		nullString(p.OTWeekdayMultiplier),
		nullString(p.OTWeekendMultiplier),
		nullString(p.OTWeekdayRate),
		nullString(p.OTWeekendRate),
		p.Allowances.Text(),
		p.Deductions.Text(),
		p.Tax.Text(),
		p.SocialSecurity.Text(),
		p.SourceFile,
		p.SourceSheet,
		p.SourceRowRange,
		p.SnapshotHash,
	}
}

func nullString(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}
