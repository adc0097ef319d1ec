package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/payflow/internal/common"
	"github.com/Veraticus/payflow/internal/config"
	"github.com/Veraticus/payflow/internal/ocr"
	"github.com/Veraticus/payflow/internal/pipeline"
	"github.com/Veraticus/payflow/internal/storage"
	"github.com/Veraticus/payflow/internal/workspace"
)

// app bundles what a command needs to reach a workspace.
type app struct {
	store      *storage.SQLiteStorage
	files      *workspace.Files
	workspaces *workspace.Service
	settings   config.App
}

// openApp opens and migrates the database and resolves the workspace root.
func openApp(ctx context.Context) (*app, error) {
	settings := config.LoadApp()

	store, err := initStorage(ctx, settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	files := workspace.NewFiles(settings.WorkspaceRoot)
	return &app{
		store:      store,
		files:      files,
		workspaces: workspace.NewService(store, files),
		settings:   settings,
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

func (a *app) worker() *pipeline.Worker {
	return pipeline.NewWithConfig(a.store, a.files, a.workspaces, pipeline.Config{
		OCR:         ocr.NoopClient{},
		Concurrency: a.settings.Concurrency,
	})
}

// requireWorkspace turns a missing workspace into a user-facing error.
func (a *app) requireWorkspace(ctx context.Context, id string) error {
	if _, err := a.store.GetWorkspace(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("workspace %s does not exist; create it with: payflow workspace create %s", id, id), err)
		}
		return err
	}
	return nil
}

// initStorage opens the database at dbPath and runs migrations.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// collectPaths expands directories one level deep into their visible
// regular files. Explicit file arguments are kept as given.
func collectPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// Let ingestion report the missing file per job.
			paths = append(paths, arg)
			continue
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			found = append(found, filepath.Join(arg, entry.Name()))
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
