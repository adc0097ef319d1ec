// Package pipeline orchestrates the ingestion of uploaded files: job
// bookkeeping, template detection, extraction, validation and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/ocr"
	"github.com/Veraticus/payflow/internal/workspace"
)

// ErrUnsupported is returned for files no extractor can read.
var ErrUnsupported = errors.New("unsupported file type")

// Config holds worker configuration.
type Config struct {
	OCR         ocr.Client
	Concurrency int
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		OCR:         ocr.NoopClient{},
		Concurrency: 4,
	}
}

// Worker ingests uploads into a workspace. Job id assignment, status
// transitions and store mutations are serialized by one mutex; parsing runs
// outside it so uploads can be parsed concurrently.
type Worker struct {
	store    Store
	progress Progress
	files    *workspace.Files
	config   Config
	mu       sync.Mutex
}

// New creates a worker with the default configuration.
func New(store Store, files *workspace.Files, progress Progress) *Worker {
	return NewWithConfig(store, files, progress, DefaultConfig())
}

// NewWithConfig creates a worker with a custom configuration.
func NewWithConfig(store Store, files *workspace.Files, progress Progress, config Config) *Worker {
	if config.OCR == nil {
		config.OCR = ocr.NoopClient{}
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Worker{
		store:    store,
		files:    files,
		progress: progress,
		config:   config,
	}
}

// Enqueue registers a queued job for path. The file itself is not read.
func (w *Worker) Enqueue(ctx context.Context, workspaceID, path string) (*model.Job, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	job, err := w.store.CreateJob(ctx, workspaceID, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s: %w", filepath.Base(path), err)
	}
	slog.Debug("Queued upload", "job", job.ID, "workspace", workspaceID, "file", job.Filename)
	return job, nil
}

// Process runs a queued job to completion. The returned job always carries
// the terminal status; the error explains a failed job.
func (w *Worker) Process(ctx context.Context, job *model.Job, path string) (*model.Job, error) {
	if err := w.transition(ctx, job, model.JobProcessing); err != nil {
		return job, err
	}

	ingested, err := w.extract(ctx, job, path)
	if err != nil {
		return job, w.fail(ctx, job, err)
	}

	if err := w.commit(ctx, job, ingested); err != nil {
		return job, w.fail(ctx, job, err)
	}

	if ingested.doc == nil {
		w.writeAudit(job, ingested)
	}
	slog.Info("Ingested upload",
		"job", job.ID,
		"file", job.Filename,
		"schema", job.Schema,
		"facts", job.FactsAdded,
		"policies", job.PoliciesAdded)
	return job, nil
}

// Ingest copies path into the workspace raw zone, enqueues it and
// processes it.
func (w *Worker) Ingest(ctx context.Context, workspaceID, path string) (*model.Job, error) {
	raw, err := w.files.CopyInto(workspaceID, path, workspace.ZoneRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	job, err := w.Enqueue(ctx, workspaceID, raw)
	if err != nil {
		return nil, err
	}
	return w.Process(ctx, job, raw)
}

// commit validates and stores the extracted records, then completes the job.
// Records before the first invalid one are kept.
func (w *Worker) commit(ctx context.Context, job *model.Job, in ingestion) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	job.Schema = string(in.schema)

	if in.doc != nil {
		if err := w.store.AddDocument(ctx, in.doc); err != nil {
			return fmt.Errorf("failed to store document: %w", err)
		}
	}

	facts, factErr := validFacts(in.facts)
	if err := w.store.AddFacts(ctx, facts); err != nil {
		return fmt.Errorf("failed to store facts: %w", err)
	}
	job.FactsAdded = len(facts)
	if factErr != nil {
		return factErr
	}

	policies, policyErr := validPolicies(in.policies)
	if err := w.store.AddPolicies(ctx, policies); err != nil {
		return fmt.Errorf("failed to store policies: %w", err)
	}
	job.PoliciesAdded = len(policies)
	if policyErr != nil {
		return policyErr
	}

	job.Status = model.JobCompleted
	job.Error = ""
	if err := w.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	for _, schema := range in.credits() {
		if err := w.progress.MarkSchema(ctx, job.WorkspaceID, schema, job.Filename, job.ID); err != nil {
			slog.Warn("Failed to mark requirement", "job", job.ID, "schema", schema, "error", err)
		}
	}
	return nil
}

func (w *Worker) transition(ctx context.Context, job *model.Job, status model.JobStatus) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	job.Status = status
	if err := w.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to move job %s to %s: %w", job.ID, status, err)
	}
	return nil
}

// fail records cause on the job and returns it.
func (w *Worker) fail(ctx context.Context, job *model.Job, cause error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	job.Status = model.JobFailed
	job.Error = cause.Error()
	if err := w.store.UpdateJob(ctx, job); err != nil {
		slog.Error("Failed to record job failure", "job", job.ID, "error", err)
	}
	slog.Warn("Upload failed", "job", job.ID, "file", job.Filename, "error", cause)
	return cause
}

func validFacts(facts []model.FactRecord) ([]model.FactRecord, error) {
	for i := range facts {
		if err := facts[i].Validate(); err != nil {
			return facts[:i], fmt.Errorf("fact %d: %w", i+1, err)
		}
	}
	return facts, nil
}

func validPolicies(policies []model.PolicySnapshot) ([]model.PolicySnapshot, error) {
	for i := range policies {
		if err := policies[i].ValidateShape(); err != nil {
			return policies[:i], fmt.Errorf("policy %d: %w", i+1, err)
		}
	}
	return policies, nil
}
