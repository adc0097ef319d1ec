package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/shopspring/decimal"
)

// AddPolicies appends partial policy snapshots in one transaction. Snapshots
// are stored as captured and merged when read.
func (s *SQLiteStorage) AddPolicies(ctx context.Context, policies []model.PolicySnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(policies) == 0 {
		return nil
	}
	if err := validatePolicies(policies); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO policies (
			ws_id, employee_name_norm, period_month, mode,
			base_amount, base_rate, ot_weekday_multiplier, ot_weekend_multiplier,
			ot_weekday_rate, ot_weekend_rate,
			allowances_json, deductions_json, tax_json, social_security_json, raw_snapshot,
			valid_from, valid_to, source_file, source_sheet, source_row_range, snapshot_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	seen := make(map[string]bool)
	for i := range policies {
		p := &policies[i]
		if !seen[p.WorkspaceID] {
			if err := ensureWorkspace(ctx, tx, p.WorkspaceID); err != nil {
				return err
			}
			seen[p.WorkspaceID] = true
		}

		trees := make([]any, 0, 5)
		for _, t := range []model.Tree{p.Allowances, p.Deductions, p.Tax, p.SocialSecurity, p.RawSnapshot} {
			text, err := treeText(t)
			if err != nil {
				return err
			}
			trees = append(trees, nullable(text))
		}

		args := []any{
			p.WorkspaceID, p.EmployeeNameNorm, p.PeriodMonth, p.Mode,
			decimalArg(p.BaseAmount), decimalArg(p.BaseRate),
			decimalArg(p.OTWeekdayMultiplier), decimalArg(p.OTWeekendMultiplier),
			decimalArg(p.OTWeekdayRate), decimalArg(p.OTWeekendRate),
		}
		args = append(args, trees...)
		args = append(args, p.ValidFrom, p.ValidTo, p.SourceFile, p.SourceSheet, p.SourceRowRange, p.SnapshotHash)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert policy for %s: %w", p.EmployeeNameNorm, err)
		}
	}

	return tx.Commit()
}

// ListPolicies returns a workspace's raw snapshots in insertion order, which
// is the order they merge in.
func (s *SQLiteStorage) ListPolicies(ctx context.Context, workspaceID string) ([]model.PolicySnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ws_id, employee_name_norm, period_month, mode,
			base_amount, base_rate, ot_weekday_multiplier, ot_weekend_multiplier,
			ot_weekday_rate, ot_weekend_rate,
			allowances_json, deductions_json, tax_json, social_security_json, raw_snapshot,
			valid_from, valid_to, source_file, source_sheet, source_row_range, snapshot_hash
		FROM policies
		WHERE ws_id = ?
		ORDER BY id
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var policies []model.PolicySnapshot
	for rows.Next() {
		var p model.PolicySnapshot
		var allowances, deductions, tax, socialSecurity, raw sql.NullString
		var validFrom, validTo, file, sheet, rowRange, hash sql.NullString
		if err := rows.Scan(
			&p.WorkspaceID, &p.EmployeeNameNorm, &p.PeriodMonth, &p.Mode,
			&p.BaseAmount, &p.BaseRate, &p.OTWeekdayMultiplier, &p.OTWeekendMultiplier,
			&p.OTWeekdayRate, &p.OTWeekendRate,
			&allowances, &deductions, &tax, &socialSecurity, &raw,
			&validFrom, &validTo, &file, &sheet, &rowRange, &hash,
		); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}

		for _, col := range []struct {
			dst  *model.Tree
			text sql.NullString
		}{
			{&p.Allowances, allowances},
			{&p.Deductions, deductions},
			{&p.Tax, tax},
			{&p.SocialSecurity, socialSecurity},
			{&p.RawSnapshot, raw},
		} {
			if *col.dst, err = parseTreeColumn(col.text); err != nil {
				return nil, err
			}
		}

		p.ValidFrom = validFrom.String
		p.ValidTo = validTo.String
		p.SourceFile = file.String
		p.SourceSheet = sheet.String
		p.SourceRowRange = rowRange.String
		p.SnapshotHash = hash.String
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// decimalArg stores decimals as exact text and missing values as NULL.
func decimalArg(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.String()
}

func nullable(text string) any {
	if text == "" {
		return nil
	}
	return text
}
