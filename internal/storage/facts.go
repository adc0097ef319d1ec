package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/payflow/internal/model"
)

// AddFacts appends facts in one transaction. Facts are never updated.
func (s *SQLiteStorage) AddFacts(ctx context.Context, facts []model.FactRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(facts) == 0 {
		return nil
	}
	if err := validateFacts(facts); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (
			ws_id, employee_name, employee_name_norm, period_month, metric_code,
			metric_value, unit, currency, confidence, metric_label,
			source_file, source_sheet, source_row, source_col,
			source_sha256, raw_text_hash, ingest_job_id, tags_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	seen := make(map[string]bool)
	for i := range facts {
		f := &facts[i]
		if !seen[f.WorkspaceID] {
			if err := ensureWorkspace(ctx, tx, f.WorkspaceID); err != nil {
				return err
			}
			seen[f.WorkspaceID] = true
		}

		tags, err := treeText(f.Tags)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			f.WorkspaceID, f.EmployeeName, f.EmployeeNameNorm, f.PeriodMonth, f.MetricCode,
			f.MetricValue.String(), f.Unit, f.Currency, f.Confidence.String(), f.MetricLabel,
			f.SourceFile, f.SourceSheet, f.SourceRow, f.SourceCol,
			f.SourceSHA256, f.RawTextHash, f.IngestJobID, tags,
		); err != nil {
			return fmt.Errorf("failed to insert fact for %s: %w", f.EmployeeNameNorm, err)
		}
	}

	return tx.Commit()
}

// ListFacts returns a workspace's facts in insertion order.
func (s *SQLiteStorage) ListFacts(ctx context.Context, workspaceID string) ([]model.FactRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ws_id, employee_name, employee_name_norm, period_month, metric_code,
			metric_value, unit, currency, confidence, metric_label,
			source_file, source_sheet, source_row, source_col,
			source_sha256, raw_text_hash, ingest_job_id, tags_json
		FROM facts
		WHERE ws_id = ?
		ORDER BY id
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var facts []model.FactRecord
	for rows.Next() {
		var f model.FactRecord
		var name, currency, label, file, sheet, col, sha, rawHash, jobID, tags sql.NullString
		var row sql.NullInt64
		if err := rows.Scan(
			&f.WorkspaceID, &name, &f.EmployeeNameNorm, &f.PeriodMonth, &f.MetricCode,
			&f.MetricValue, &f.Unit, &currency, &f.Confidence, &label,
			&file, &sheet, &row, &col,
			&sha, &rawHash, &jobID, &tags,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		f.EmployeeName = name.String
		f.Currency = currency.String
		f.MetricLabel = label.String
		f.SourceFile = file.String
		f.SourceSheet = sheet.String
		f.SourceRow = int(row.Int64)
		f.SourceCol = col.String
		f.SourceSHA256 = sha.String
		f.RawTextHash = rawHash.String
		f.IngestJobID = jobID.String
		if f.Tags, err = parseTreeColumn(tags); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
