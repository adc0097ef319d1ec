package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/payflow/internal/common"
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/service"
)

// CreateWorkspace creates the workspace for month. Creating an existing
// workspace returns it unchanged.
func (s *SQLiteStorage) CreateWorkspace(ctx context.Context, month string) (*model.Workspace, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !model.ValidPeriod(month) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidPeriod, month)
	}

	if err := ensureWorkspace(ctx, s.db, month); err != nil {
		return nil, err
	}
	return s.GetWorkspace(ctx, month)
}

// GetWorkspace returns the workspace with its review checkpoints.
func (s *SQLiteStorage) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var ws model.Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, month, created_at
		FROM workspaces
		WHERE id = ?
	`, id).Scan(&ws.ID, &ws.Month, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workspace %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT step, status FROM checkpoints WHERE ws_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ws.Checkpoints = make(map[string]string)
	for rows.Next() {
		var step, status string
		if err := rows.Scan(&step, &status); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		ws.Checkpoints[step] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoints: %w", err)
	}
	return &ws, nil
}

// ListWorkspaces returns every workspace with record counts, newest month
// first.
func (s *SQLiteStorage) ListWorkspaces(ctx context.Context) ([]service.WorkspaceSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.month,
			(SELECT COUNT(*) FROM jobs j WHERE j.ws_id = w.id),
			(SELECT COUNT(*) FROM facts f WHERE f.ws_id = w.id),
			(SELECT COUNT(*) FROM policies p WHERE p.ws_id = w.id),
			(SELECT COUNT(*) FROM results r WHERE r.ws_id = w.id)
		FROM workspaces w
		ORDER BY w.month DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []service.WorkspaceSummary
	for rows.Next() {
		var ws service.WorkspaceSummary
		if err := rows.Scan(&ws.ID, &ws.Month, &ws.Jobs, &ws.Facts, &ws.Policies, &ws.Results); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		summaries = append(summaries, ws)
	}
	return summaries, rows.Err()
}

// UpdateCheckpoint records a review step status. An empty status clears the
// checkpoint.
func (s *SQLiteStorage) UpdateCheckpoint(ctx context.Context, workspaceID, step, status string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(workspaceID, "workspaceID"); err != nil {
		return err
	}
	if err := validateString(step, "step"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureWorkspace(ctx, tx, workspaceID); err != nil {
		return err
	}

	if status == "" {
		_, err = tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE ws_id = ? AND step = ?`, workspaceID, step)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO checkpoints (ws_id, step, status, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(ws_id, step) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
		`, workspaceID, step, status, time.Now())
	}
	if err != nil {
		return fmt.Errorf("failed to update checkpoint: %w", err)
	}
	return tx.Commit()
}
