package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/workspace"
	"golang.org/x/sync/errgroup"
)

// FileStatus is the outcome of one file in a batch.
type FileStatus struct {
	Err  error
	Job  *model.Job
	Path string
}

// Failed reports whether the file did not complete.
func (s FileStatus) Failed() bool {
	return s.Err != nil
}

// IngestBatch ingests several files into one workspace. Every file is
// enqueued first, in order, then parsed concurrently. A failing file does not
// stop the others. onDone, when set, is called as each file finishes and may
// be called from several goroutines at once.
func (w *Worker) IngestBatch(ctx context.Context, workspaceID string, paths []string, onDone func(FileStatus)) ([]FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := w.files.EnsureWorkspace(workspaceID); err != nil {
		return nil, err
	}

	statuses := make([]FileStatus, len(paths))
	raws := make([]string, len(paths))
	for i, path := range paths {
		statuses[i].Path = path
		raw, err := w.files.CopyInto(workspaceID, path, workspace.ZoneRaw)
		if err != nil {
			statuses[i].Err = fmt.Errorf("failed to store upload: %w", err)
			continue
		}
		job, err := w.Enqueue(ctx, workspaceID, raw)
		if err != nil {
			statuses[i].Err = err
			continue
		}
		raws[i] = raw
		statuses[i].Job = job
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)
	for i := range statuses {
		if statuses[i].Job == nil {
			if onDone != nil {
				onDone(statuses[i])
			}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				statuses[i].Err = err
				return err
			}
			job, err := w.Process(gctx, statuses[i].Job, raws[i])
			statuses[i].Job = job
			statuses[i].Err = err
			if onDone != nil {
				onDone(statuses[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return statuses, fmt.Errorf("batch interrupted: %w", err)
	}

	completed, failed := Summary(statuses)
	slog.Info("Ingested batch",
		"workspace", workspaceID,
		"completed", completed,
		"failed", failed)
	return statuses, nil
}

// Summary counts completed and failed files.
func Summary(statuses []FileStatus) (completed, failed int) {
	for _, s := range statuses {
		if s.Failed() {
			failed++
			continue
		}
		completed++
	}
	return completed, failed
}
