package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/policy"
	"github.com/Veraticus/payflow/internal/service"
	"github.com/shopspring/decimal"
)

// Step statuses.
const (
	StatusCompleted  = "completed"
	StatusInProgress = "in_progress"
	StatusPending    = "pending"
	StatusBlocked    = "blocked"
)

// LowConfidence is the confidence below which a fact needs review.
var LowConfidence = decimal.RequireFromString("0.8")

// RequirementState is a requirement and the upload that satisfied it, if any.
type RequirementState struct {
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	RequirementDef
	Status       string `json:"status"`
	Filename     string `json:"filename,omitempty"`
	JobID        string `json:"job_id,omitempty"`
	Schema       string `json:"schema,omitempty"`
	AutoInferred bool   `json:"auto_inferred"`
}

// Step is the computed state of one workflow stage.
type Step struct {
	Meta         map[string]any     `json:"meta"`
	ID           string             `json:"id"`
	Label        string             `json:"label"`
	Description  string             `json:"description"`
	Status       string             `json:"status"`
	Requirements []RequirementState `json:"requirements"`
}

// JobSummary counts jobs by status.
type JobSummary struct {
	ByStatus map[model.JobStatus]int `json:"by_status"`
	Total    int                     `json:"total"`
	Pending  int                     `json:"pending"`
	Failed   int                     `json:"failed"`
}

// Summary aggregates what a workspace holds.
type Summary struct {
	Jobs          JobSummary `json:"jobs"`
	ResultPeriods []string   `json:"result_periods"`
	Facts         int        `json:"facts"`
	LowConfidence int        `json:"low_confidence"`
	Policies      int        `json:"policies"`
	Results       int        `json:"results"`
}

// Progress is the guided view of a workspace.
type Progress struct {
	WorkspaceID string  `json:"ws_id"`
	Month       string  `json:"month"`
	NextStep    string  `json:"next_step,omitempty"`
	Steps       []Step  `json:"steps"`
	Summary     Summary `json:"summary"`
	Overall     float64 `json:"overall"`
}

// Overview is a workspace with its jobs, documents and requirements.
type Overview struct {
	Workspace    *model.Workspace             `json:"workspace"`
	Requirements map[string]model.Requirement `json:"requirements"`
	Jobs         []model.Job                  `json:"jobs"`
	Documents    []model.Document             `json:"documents"`
}

// Service coordinates workspace use cases on top of a Store.
type Service struct {
	store Store
	files *Files
}

// NewService creates a workspace service. files may be nil when no workspace
// folders are managed.
func NewService(store Store, files *Files) *Service {
	return &Service{store: store, files: files}
}

// Create creates the workspace for month and its folders.
func (s *Service) Create(ctx context.Context, month string) (*model.Workspace, error) {
	ws, err := s.store.CreateWorkspace(ctx, month)
	if err != nil {
		return nil, err
	}
	if s.files != nil {
		if _, err := s.files.EnsureWorkspace(ws.ID); err != nil {
			return nil, err
		}
	}
	slog.Info("Workspace ready", "workspace", ws.ID)
	return ws, nil
}

// List returns every workspace, newest month first.
func (s *Service) List(ctx context.Context) ([]service.WorkspaceSummary, error) {
	return s.store.ListWorkspaces(ctx)
}

// Overview returns a workspace with its jobs, documents and requirements.
func (s *Service) Overview(ctx context.Context, workspaceID string) (*Overview, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.store.ListJobs(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	docs, err := s.store.ListDocuments(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	reqs, err := s.store.GetRequirements(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requirements: %w", err)
	}
	return &Overview{Workspace: ws, Jobs: jobs, Documents: docs, Requirements: reqs}, nil
}

// UpdateCheckpoint sets a review checkpoint. An empty status clears it.
func (s *Service) UpdateCheckpoint(ctx context.Context, workspaceID, step, status string) error {
	return s.store.UpdateCheckpoint(ctx, workspaceID, step, status)
}

// MarkSchema credits the requirement an upload of schema satisfies. Schemas
// that satisfy no requirement are ignored.
func (s *Service) MarkSchema(ctx context.Context, workspaceID, schema, filename, jobID string) error {
	id, ok := RequirementForSchema(schema)
	if !ok {
		return nil
	}
	return s.store.MarkRequirement(ctx, workspaceID, model.Requirement{
		ID:       id,
		Status:   StatusCompleted,
		Filename: filename,
		JobID:    jobID,
		Schema:   schema,
	})
}

// Policies returns the workspace's snapshots merged per employee and period.
func (s *Service) Policies(ctx context.Context, workspaceID string) ([]model.PolicySnapshot, error) {
	snapshots, err := s.store.ListPolicies(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policy.MergeAll(snapshots), nil
}

// Progress computes the workflow state of a workspace.
func (s *Service) Progress(ctx context.Context, workspaceID string) (*Progress, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.store.GetRequirements(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requirements: %w", err)
	}
	jobs, err := s.store.ListJobs(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	facts, err := s.store.ListFacts(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list facts: %w", err)
	}
	policies, err := s.Policies(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	results, err := s.store.ListResults(ctx, workspaceID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	summary := summarize(jobs, facts, policies, results)
	states := requirementStates(reqs, summary.Facts)

	progress := &Progress{
		WorkspaceID: ws.ID,
		Month:       ws.Month,
		Summary:     summary,
	}

	completed := 0
	prerequisites := true
	for _, def := range Steps {
		step := Step{
			ID:           def.ID,
			Label:        def.Label,
			Description:  def.Description,
			Requirements: stepRequirements(states, def.ID),
			Meta:         map[string]any{},
		}

		switch {
		case def.ID == StepWorkspaceSetup:
			step.Status = StatusCompleted
			step.Meta["month"] = ws.Month
		case !prerequisites:
			step.Status = StatusBlocked
		case def.ID == StepUploadTimesheets || def.ID == StepUploadPolicy:
			step.Status = uploadStatus(step.Requirements)
			if def.ID == StepUploadTimesheets {
				step.Meta["fact_rows"] = summary.Facts
			} else {
				step.Meta["policy_rows"] = summary.Policies
			}
		case def.ID == StepReviewData:
			checkpoint := ws.Checkpoints[def.ID]
			if checkpoint == "" {
				checkpoint = StatusPending
			}
			step.Status = StatusPending
			if checkpoint == StatusCompleted {
				step.Status = StatusCompleted
			}
			step.Meta["checkpoint_status"] = checkpoint
			step.Meta["facts_count"] = summary.Facts
			step.Meta["policies_count"] = summary.Policies
			step.Meta["low_confidence"] = summary.LowConfidence
			step.Meta["pending_jobs"] = summary.Jobs.Pending
			step.Meta["failed_jobs"] = summary.Jobs.Failed
		case def.ID == StepRunPayroll:
			step.Status = StatusPending
			if summary.Results > 0 {
				step.Status = StatusCompleted
			}
			step.Meta["results_count"] = summary.Results
			step.Meta["available_periods"] = summary.ResultPeriods
		}

		if step.Status == StatusCompleted {
			completed++
		} else if prerequisites && progress.NextStep == "" && step.Status != StatusBlocked {
			progress.NextStep = def.ID
		}
		prerequisites = prerequisites && step.Status == StatusCompleted
		progress.Steps = append(progress.Steps, step)
	}

	progress.Overall = math.Round(float64(completed)/float64(len(Steps))*10000) / 10000
	return progress, nil
}

func summarize(jobs []model.Job, facts []model.FactRecord, policies []model.PolicySnapshot, results []model.PayrollResult) Summary {
	summary := Summary{
		Jobs:     JobSummary{ByStatus: make(map[model.JobStatus]int), Total: len(jobs)},
		Facts:    len(facts),
		Policies: len(policies),
		Results:  len(results),
	}

	for _, job := range jobs {
		summary.Jobs.ByStatus[job.Status]++
		switch job.Status {
		case model.JobQueued, model.JobProcessing:
			summary.Jobs.Pending++
		case model.JobFailed:
			summary.Jobs.Failed++
		}
	}

	for _, f := range facts {
		if f.Confidence.LessThan(LowConfidence) {
			summary.LowConfidence++
		}
	}

	periods := make(map[string]bool)
	for _, r := range results {
		if r.PeriodMonth != "" {
			periods[r.PeriodMonth] = true
		}
	}
	summary.ResultPeriods = make([]string, 0, len(periods))
	for p := range periods {
		summary.ResultPeriods = append(summary.ResultPeriods, p)
	}
	sort.Strings(summary.ResultPeriods)
	return summary
}

// requirementStates applies stored marks to the definitions. Any fact at all
// counts as timesheet detail, whichever upload produced it.
func requirementStates(marks map[string]model.Requirement, facts int) []RequirementState {
	states := make([]RequirementState, 0, len(Requirements))
	for _, def := range Requirements {
		state := RequirementState{RequirementDef: def, Status: StatusPending}
		if mark, ok := marks[def.ID]; ok {
			if mark.Status != "" {
				state.Status = mark.Status
			}
			state.Filename = mark.Filename
			state.JobID = mark.JobID
			state.Schema = mark.Schema
			state.UpdatedAt = mark.UpdatedAt
		}
		if def.ID == RequirementTimesheetDetail && state.Status != StatusCompleted && facts > 0 {
			state.Status = StatusCompleted
			state.AutoInferred = true
		}
		states = append(states, state)
	}
	return states
}

func stepRequirements(states []RequirementState, step string) []RequirementState {
	var out []RequirementState
	for _, s := range states {
		if s.Step == step {
			out = append(out, s)
		}
	}
	return out
}

func uploadStatus(reqs []RequirementState) string {
	satisfied := false
	required := true
	for _, r := range reqs {
		done := r.Status == StatusCompleted
		satisfied = satisfied || done
		if !r.Optional && !done {
			required = false
		}
	}
	switch {
	case required:
		return StatusCompleted
	case satisfied:
		return StatusInProgress
	default:
		return StatusPending
	}
}
