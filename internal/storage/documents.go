package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/payflow/internal/model"
)

// AddDocument stores an OCR document record.
func (s *SQLiteStorage) AddDocument(ctx context.Context, doc *model.Document) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	metadata, err := treeText(doc.OCRMetadata)
	if err != nil {
		return err
	}
	var table any
	if len(doc.Table) > 0 {
		data, err := json.Marshal(doc.Table)
		if err != nil {
			return fmt.Errorf("failed to encode document table: %w", err)
		}
		table = string(data)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureWorkspace(ctx, tx, doc.WorkspaceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (
			id, ws_id, source_file, schema, requires_ocr, text, table_json,
			confidence, ocr_metadata, ingest_job_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.WorkspaceID, doc.SourceFile, doc.Schema, doc.RequiresOCR, doc.Text, table,
		decimalArg(doc.Confidence), nullable(metadata), doc.IngestJobID, doc.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return tx.Commit()
}

// ListDocuments returns a workspace's document records in upload order.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, workspaceID string) ([]model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ws_id, source_file, schema, requires_ocr, text, table_json,
			confidence, ocr_metadata, ingest_job_id, created_at
		FROM documents
		WHERE ws_id = ?
		ORDER BY created_at, id
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		var text, table, metadata, jobID sql.NullString
		if err := rows.Scan(
			&doc.ID, &doc.WorkspaceID, &doc.SourceFile, &doc.Schema, &doc.RequiresOCR, &text, &table,
			&doc.Confidence, &metadata, &jobID, &doc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Text = text.String
		doc.IngestJobID = jobID.String
		if table.Valid && table.String != "" {
			if err := json.Unmarshal([]byte(table.String), &doc.Table); err != nil {
				return nil, fmt.Errorf("%w: document table: %w", ErrCorruptColumn, err)
			}
		}
		if doc.OCRMetadata, err = parseTreeColumn(metadata); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
