// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/shopspring/decimal"
)

// WorkspaceSummary counts what a workspace holds.
type WorkspaceSummary struct {
	ID       string `json:"ws_id"`
	Month    string `json:"month"`
	Jobs     int    `json:"jobs"`
	Facts    int    `json:"facts"`
	Policies int    `json:"policy"`
	Results  int    `json:"results"`
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Workspace operations
	CreateWorkspace(ctx context.Context, month string) (*model.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]WorkspaceSummary, error)
	UpdateCheckpoint(ctx context.Context, workspaceID, step, status string) error

	// Job operations
	CreateJob(ctx context.Context, workspaceID, filename string) (*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	ListJobs(ctx context.Context, workspaceID string) ([]model.Job, error)

	// Record operations
	AddFacts(ctx context.Context, facts []model.FactRecord) error
	ListFacts(ctx context.Context, workspaceID string) ([]model.FactRecord, error)
	AddPolicies(ctx context.Context, policies []model.PolicySnapshot) error
	ListPolicies(ctx context.Context, workspaceID string) ([]model.PolicySnapshot, error)
	AddDocument(ctx context.Context, doc *model.Document) error
	ListDocuments(ctx context.Context, workspaceID string) ([]model.Document, error)

	// Result operations
	SaveResults(ctx context.Context, workspaceID, period string, results []model.PayrollResult) error
	ListResults(ctx context.Context, workspaceID, period string) ([]model.PayrollResult, error)

	// Requirement operations
	MarkRequirement(ctx context.Context, workspaceID string, req model.Requirement) error
	GetRequirements(ctx context.Context, workspaceID string) (map[string]model.Requirement, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ReportWriter publishes a period's payroll results.
type ReportWriter interface {
	Write(ctx context.Context, results []model.PayrollResult, summary *PayrollSummary) error
}

// PayrollSummary totals the results of one period.
type PayrollSummary struct {
	Gross          decimal.Decimal
	Net            decimal.Decimal
	Tax            decimal.Decimal
	SocialSecurity decimal.Decimal
	Allowances     decimal.Decimal
	Deductions     decimal.Decimal
	WorkspaceID    string
	Period         string
	RuleVersion    string
	Employees      int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
