package pipeline

import (
	"context"

	"github.com/Veraticus/payflow/internal/model"
)

// Store is the persistence the worker records jobs and extracted records in.
type Store interface {
	CreateJob(ctx context.Context, workspaceID, filename string) (*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	AddFacts(ctx context.Context, facts []model.FactRecord) error
	AddPolicies(ctx context.Context, policies []model.PolicySnapshot) error
	AddDocument(ctx context.Context, doc *model.Document) error
}

// Progress is credited with the schemas each completed upload satisfied.
type Progress interface {
	MarkSchema(ctx context.Context, workspaceID, schema, filename, jobID string) error
}
