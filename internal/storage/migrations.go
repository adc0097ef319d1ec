package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS workspaces (
					id TEXT PRIMARY KEY,
					month TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS jobs (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT UNIQUE,
					ws_id TEXT NOT NULL,
					filename TEXT NOT NULL,
					status TEXT NOT NULL,
					schema TEXT,
					error TEXT,
					facts_added INTEGER DEFAULT 0,
					policies_added INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_jobs_ws ON jobs(ws_id)`,

				`CREATE TABLE IF NOT EXISTS facts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ws_id TEXT NOT NULL,
					employee_name TEXT,
					employee_name_norm TEXT NOT NULL,
					period_month TEXT NOT NULL,
					metric_code TEXT NOT NULL,
					metric_value TEXT NOT NULL,
					unit TEXT NOT NULL,
					currency TEXT,
					confidence TEXT NOT NULL,
					metric_label TEXT,
					source_file TEXT,
					source_sheet TEXT,
					source_row INTEGER,
					source_col TEXT,
					source_sha256 TEXT,
					raw_text_hash TEXT,
					ingest_job_id TEXT,
					tags_json TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_facts_ws_period ON facts(ws_id, period_month)`,

				`CREATE TABLE IF NOT EXISTS policies (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ws_id TEXT NOT NULL,
					employee_name_norm TEXT NOT NULL,
					period_month TEXT NOT NULL,
					mode TEXT NOT NULL,
					base_amount TEXT,
					base_rate TEXT,
					ot_weekday_multiplier TEXT,
					ot_weekend_multiplier TEXT,
					ot_weekday_rate TEXT,
					ot_weekend_rate TEXT,
					allowances_json TEXT,
					deductions_json TEXT,
					tax_json TEXT,
					social_security_json TEXT,
					raw_snapshot TEXT,
					valid_from TEXT,
					valid_to TEXT,
					source_file TEXT,
					source_sheet TEXT,
					source_row_range TEXT,
					snapshot_hash TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_policies_ws_period ON policies(ws_id, period_month)`,

				`CREATE TABLE IF NOT EXISTS results (
					ws_id TEXT NOT NULL,
					period_month TEXT NOT NULL,
					employee_name_norm TEXT NOT NULL,
					gross_pay TEXT NOT NULL,
					net_pay TEXT NOT NULL,
					base_pay TEXT NOT NULL,
					ot_pay TEXT NOT NULL,
					allowances_sum TEXT NOT NULL,
					deductions_sum TEXT NOT NULL,
					social_security_personal TEXT NOT NULL,
					tax TEXT NOT NULL,
					snapshot_hash TEXT,
					rule_version TEXT NOT NULL,
					source_files TEXT,
					PRIMARY KEY (ws_id, period_month, employee_name_norm)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add documents, requirements and review checkpoints",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS documents (
					id TEXT PRIMARY KEY,
					ws_id TEXT NOT NULL,
					source_file TEXT NOT NULL,
					schema TEXT NOT NULL,
					requires_ocr INTEGER NOT NULL DEFAULT 0,
					text TEXT,
					table_json TEXT,
					confidence TEXT,
					ocr_metadata TEXT,
					ingest_job_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_documents_ws ON documents(ws_id)`,

				`CREATE TABLE IF NOT EXISTS requirements (
					ws_id TEXT NOT NULL,
					requirement_id TEXT NOT NULL,
					status TEXT NOT NULL,
					filename TEXT,
					job_id TEXT,
					schema TEXT,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (ws_id, requirement_id)
				)`,

				`CREATE TABLE IF NOT EXISTS checkpoints (
					ws_id TEXT NOT NULL,
					step TEXT NOT NULL,
					status TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (ws_id, step)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Track calculation runs on results",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE results ADD COLUMN run_id TEXT`,
				`ALTER TABLE results ADD COLUMN calculated_at DATETIME`,
				`UPDATE results SET calculated_at = CURRENT_TIMESTAMP WHERE calculated_at IS NULL`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, version)
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
