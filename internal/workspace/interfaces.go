package workspace

import (
	"context"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/service"
)

// Store is the persistence the workspace service reads progress from.
type Store interface {
	CreateWorkspace(ctx context.Context, month string) (*model.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]service.WorkspaceSummary, error)
	UpdateCheckpoint(ctx context.Context, workspaceID, step, status string) error
	ListJobs(ctx context.Context, workspaceID string) ([]model.Job, error)
	ListFacts(ctx context.Context, workspaceID string) ([]model.FactRecord, error)
	ListPolicies(ctx context.Context, workspaceID string) ([]model.PolicySnapshot, error)
	ListDocuments(ctx context.Context, workspaceID string) ([]model.Document, error)
	ListResults(ctx context.Context, workspaceID, period string) ([]model.PayrollResult, error)
	MarkRequirement(ctx context.Context, workspaceID string, req model.Requirement) error
	GetRequirements(ctx context.Context, workspaceID string) (map[string]model.Requirement, error)
}
