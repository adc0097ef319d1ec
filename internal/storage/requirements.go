package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/payflow/internal/model"
)

// RequirementCompleted is the status a marked requirement carries.
const RequirementCompleted = "completed"

// MarkRequirement records that an upload satisfied a workspace requirement.
// A later upload for the same requirement replaces the earlier record.
func (s *SQLiteStorage) MarkRequirement(ctx context.Context, workspaceID string, req model.Requirement) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(workspaceID, "workspaceID"); err != nil {
		return err
	}
	if err := validateString(req.ID, "requirement id"); err != nil {
		return err
	}
	if req.Status == "" {
		req.Status = RequirementCompleted
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureWorkspace(ctx, tx, workspaceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO requirements (ws_id, requirement_id, status, filename, job_id, schema, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ws_id, requirement_id) DO UPDATE SET
			status = excluded.status,
			filename = excluded.filename,
			job_id = excluded.job_id,
			schema = excluded.schema,
			updated_at = excluded.updated_at
	`, workspaceID, req.ID, req.Status, req.Filename, req.JobID, req.Schema, time.Now()); err != nil {
		return fmt.Errorf("failed to mark requirement: %w", err)
	}
	return tx.Commit()
}

// GetRequirements returns the marked requirements of a workspace by id.
func (s *SQLiteStorage) GetRequirements(ctx context.Context, workspaceID string) (map[string]model.Requirement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT requirement_id, status, filename, job_id, schema, updated_at
		FROM requirements
		WHERE ws_id = ?
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]model.Requirement)
	for rows.Next() {
		var req model.Requirement
		var filename, jobID, schema sql.NullString
		if err := rows.Scan(&req.ID, &req.Status, &filename, &jobID, &schema, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		req.Filename = filename.String
		req.JobID = jobID.String
		req.Schema = schema.String
		out[req.ID] = req
	}
	return out, rows.Err()
}
