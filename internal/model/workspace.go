package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Workspace is a payroll-month container for uploads, records and results.
// Its ID is the month itself.
type Workspace struct {
	CreatedAt   time.Time         `json:"created_at"`
	Checkpoints map[string]string `json:"checkpoints,omitempty"`
	ID          string            `json:"ws_id"`
	Month       string            `json:"month"`
}

// JobStatus is the lifecycle state of one uploaded file.
type JobStatus string

// Job statuses. Completed and failed are terminal.
const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether a job may move from s to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobQueued:
		return next == JobProcessing || next == JobFailed
	case JobProcessing:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

// Job tracks the ingestion of one uploaded file.
type Job struct {
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ID            string    `json:"job_id"`
	WorkspaceID   string    `json:"ws_id"`
	Filename      string    `json:"filename"`
	Status        JobStatus `json:"status"`
	Schema        string    `json:"schema,omitempty"`
	Error         string    `json:"error,omitempty"`
	FactsAdded    int       `json:"facts_added"`
	PoliciesAdded int       `json:"policies_added"`
}

// Document records an upload that needs OCR before it can yield facts.
type Document struct {
	CreatedAt   time.Time           `json:"created_at"`
	Confidence  decimal.NullDecimal `json:"confidence"`
	OCRMetadata Tree                `json:"ocr_metadata"`
	ID          string              `json:"id"`
	WorkspaceID string              `json:"ws_id"`
	SourceFile  string              `json:"source_file"`
	Schema      string              `json:"schema"`
	Text        string              `json:"text"`
	IngestJobID string              `json:"ingest_job_id,omitempty"`
	Table       [][]string          `json:"table,omitempty"`
	RequiresOCR bool                `json:"requires_ocr"`
}

// Requirement records which upload satisfied a workspace requirement.
type Requirement struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Filename  string    `json:"filename,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	Schema    string    `json:"schema,omitempty"`
}
