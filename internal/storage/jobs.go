package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/payflow/internal/common"
	"github.com/Veraticus/payflow/internal/model"
)

// CreateJob registers a queued upload. Job ids are global and sequential.
func (s *SQLiteStorage) CreateJob(ctx context.Context, workspaceID, filename string) (*model.Job, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(workspaceID, "workspaceID"); err != nil {
		return nil, err
	}
	if err := validateString(filename, "filename"); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureWorkspace(ctx, tx, workspaceID); err != nil {
		return nil, err
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO jobs (ws_id, filename, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, workspaceID, filename, model.JobQueued, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read job sequence: %w", err)
	}

	id := fmt.Sprintf("job-%05d", seq)
	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET id = ? WHERE seq = ?`, id, seq); err != nil {
		return nil, fmt.Errorf("failed to assign job id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit job: %w", err)
	}

	return &model.Job{
		ID:          id,
		WorkspaceID: workspaceID,
		Filename:    filename,
		Status:      model.JobQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetJob returns a job by id.
func (s *SQLiteStorage) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	job, err := scanJob(s.db.QueryRowContext(ctx, jobSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// UpdateJob stores the job's status, schema, error and counters. A status
// change must be a legal lifecycle transition.
func (s *SQLiteStorage) UpdateJob(ctx context.Context, job *model.Job) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateJob(job); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current model.JobStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, job.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("job %s: %w", job.ID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get job status: %w", err)
	}
	if current != job.Status && !current.CanTransition(job.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, job.Status)
	}

	job.UpdatedAt = time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, schema = ?, error = ?, facts_added = ?, policies_added = ?, updated_at = ?
		WHERE id = ?
	`, job.Status, job.Schema, job.Error, job.FactsAdded, job.PoliciesAdded, job.UpdatedAt, job.ID); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return tx.Commit()
}

// ListJobs returns a workspace's jobs in upload order.
func (s *SQLiteStorage) ListJobs(ctx context.Context, workspaceID string) ([]model.Job, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, jobSelect+` WHERE ws_id = ? ORDER BY seq`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

const jobSelect = `
	SELECT id, ws_id, filename, status, schema, error, facts_added, policies_added, created_at, updated_at
	FROM jobs`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*model.Job, error) {
	var job model.Job
	var schema, errMsg sql.NullString
	if err := row.Scan(
		&job.ID,
		&job.WorkspaceID,
		&job.Filename,
		&job.Status,
		&schema,
		&errMsg,
		&job.FactsAdded,
		&job.PoliciesAdded,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Schema = schema.String
	job.Error = errMsg.String
	return &job, nil
}
