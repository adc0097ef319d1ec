package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Watcher ingests files dropped into a workspace's inbox zone.
type Watcher struct {
	worker      *Worker
	watcher     *fsnotify.Watcher
	onIngest    func(*model.Job, error)
	pending     map[string]time.Time
	workspaceID string
	dir         string
	debounce    time.Duration
	mu          sync.Mutex
}

// NewWatcher prepares a watcher on the inbox of workspaceID. onIngest, when
// set, is called after each ingestion attempt.
func NewWatcher(worker *Worker, workspaceID string, debounce time.Duration, onIngest func(*model.Job, error)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if _, err := worker.files.EnsureWorkspace(workspaceID); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := worker.files.Path(workspaceID, workspace.ZoneInbox)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		worker:      worker,
		watcher:     fw,
		onIngest:    onIngest,
		pending:     make(map[string]time.Time),
		workspaceID: workspaceID,
		dir:         dir,
		debounce:    debounce,
	}, nil
}

// Dir returns the watched inbox directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run processes events until ctx is canceled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	ticker := time.NewTicker(max(w.debounce/5, 10*time.Millisecond))
	defer ticker.Stop()

	slog.Info("Watching inbox", "workspace", w.workspaceID, "dir", w.dir)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Inbox watcher error", "workspace", w.workspaceID, "error", err)

		case now := <-ticker.C:
			for _, path := range w.due(now) {
				job, err := w.worker.Ingest(ctx, w.workspaceID, path)
				if w.onIngest != nil {
					w.onIngest(job, err)
				}
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// due removes and returns the pending files that have been quiet for the
// debounce interval, skipping ones that vanished or are directories.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) < w.debounce {
			continue
		}
		delete(w.pending, path)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		ready = append(ready, path)
	}
	sort.Strings(ready)
	return ready
}
