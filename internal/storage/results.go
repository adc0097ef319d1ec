package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/google/uuid"
)

// SaveResults replaces the stored results of one period with results. All
// rows written together share a run id.
func (s *SQLiteStorage) SaveResults(ctx context.Context, workspaceID, period string, results []model.PayrollResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(workspaceID, "workspaceID"); err != nil {
		return err
	}
	if !model.ValidPeriod(period) {
		return fmt.Errorf("%w: %q", model.ErrInvalidPeriod, period)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureWorkspace(ctx, tx, workspaceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM results WHERE ws_id = ? AND period_month = ?`, workspaceID, period); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (
			ws_id, period_month, employee_name_norm,
			gross_pay, net_pay, base_pay, ot_pay, allowances_sum, deductions_sum,
			social_security_personal, tax, snapshot_hash, rule_version, source_files,
			run_id, calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	runID := uuid.NewString()
	now := time.Now()
	for i := range results {
		r := &results[i]
		files, err := json.Marshal(r.SourceFiles)
		if err != nil {
			return fmt.Errorf("failed to encode source files: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			workspaceID, period, r.EmployeeNameNorm,
			r.GrossPay.StringFixed(2), r.NetPay.StringFixed(2), r.BasePay.StringFixed(2), r.OTPay.StringFixed(2),
			r.AllowancesSum.StringFixed(2), r.DeductionsSum.StringFixed(2),
			r.SocialSecurityPersonal.StringFixed(2), r.Tax.StringFixed(2),
			r.SnapshotHash, r.RuleVersion, string(files),
			runID, now,
		); err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", r.EmployeeNameNorm, err)
		}
		r.RunID = runID
		r.CalculatedAt = now
	}

	return tx.Commit()
}

// ListResults returns stored results ordered by period and employee. An
// empty period returns every period.
func (s *SQLiteStorage) ListResults(ctx context.Context, workspaceID, period string) ([]model.PayrollResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT period_month, employee_name_norm,
			gross_pay, net_pay, base_pay, ot_pay, allowances_sum, deductions_sum,
			social_security_personal, tax, snapshot_hash, rule_version, source_files,
			run_id, calculated_at
		FROM results
		WHERE ws_id = ?`
	args := []any{workspaceID}
	if period != "" {
		query += ` AND period_month = ?`
		args = append(args, period)
	}
	query += ` ORDER BY period_month, employee_name_norm`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.PayrollResult
	for rows.Next() {
		var r model.PayrollResult
		var hash, files, runID sql.NullString
		var calculatedAt sql.NullTime
		if err := rows.Scan(
			&r.PeriodMonth, &r.EmployeeNameNorm,
			&r.GrossPay, &r.NetPay, &r.BasePay, &r.OTPay, &r.AllowancesSum, &r.DeductionsSum,
			&r.SocialSecurityPersonal, &r.Tax, &hash, &r.RuleVersion, &files,
			&runID, &calculatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.SnapshotHash = hash.String
		r.RunID = runID.String
		r.CalculatedAt = calculatedAt.Time
		if files.Valid && files.String != "" {
			if err := json.Unmarshal([]byte(files.String), &r.SourceFiles); err != nil {
				return nil, fmt.Errorf("%w: source files: %w", ErrCorruptColumn, err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
