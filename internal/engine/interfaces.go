package engine

import (
	"context"

	"github.com/Veraticus/payflow/internal/model"
)

// Store is the slice of persistence the payroll engine reads from and writes
// results to.
type Store interface {
	ListFacts(ctx context.Context, workspaceID string) ([]model.FactRecord, error)
	ListPolicies(ctx context.Context, workspaceID string) ([]model.PolicySnapshot, error)
	SaveResults(ctx context.Context, workspaceID, period string, results []model.PayrollResult) error
}
