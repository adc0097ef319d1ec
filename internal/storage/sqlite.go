// Package storage provides the data persistence layer for payflow.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/payflow/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStorage implements service.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance. Pass MemoryPath for
// a throwaway database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Path returns the database location.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ensureWorkspace creates the workspace row on first use, so records can be
// added to a month before it was explicitly created.
func ensureWorkspace(ctx context.Context, q queryable, id string) error {
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO workspaces (id, month) VALUES (?, ?)`, id, id); err != nil {
		return fmt.Errorf("failed to ensure workspace %s: %w", id, err)
	}
	return nil
}

func treeText(t model.Tree) (string, error) {
	if t.IsNull() {
		return "", nil
	}
	data, err := t.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode json column: %w", err)
	}
	return string(data), nil
}

func parseTreeColumn(text sql.NullString) (model.Tree, error) {
	if !text.Valid || text.String == "" {
		return model.Null(), nil
	}
	t, err := model.ParseTree(text.String)
	if err != nil {
		return model.Null(), fmt.Errorf("%w: %w", ErrCorruptColumn, err)
	}
	return t, nil
}
