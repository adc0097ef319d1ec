package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/payflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrCorruptColumn     = errors.New("stored column cannot be decoded")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateFacts(facts []model.FactRecord) error {
	for i := range facts {
		if err := validateString(facts[i].WorkspaceID, "ws_id"); err != nil {
			return fmt.Errorf("fact at index %d: %w", i, err)
		}
		if err := facts[i].Validate(); err != nil {
			return fmt.Errorf("fact at index %d: %w", i, err)
		}
	}
	return nil
}

// validatePolicies accepts partial snapshots; completeness is only required
// of the merged snapshot at calculation time.
func validatePolicies(policies []model.PolicySnapshot) error {
	for i := range policies {
		if err := validateString(policies[i].WorkspaceID, "ws_id"); err != nil {
			return fmt.Errorf("policy at index %d: %w", i, err)
		}
		if err := policies[i].ValidateShape(); err != nil {
			return fmt.Errorf("policy at index %d: %w", i, err)
		}
	}
	return nil
}

func validateDocument(doc *model.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	if err := validateString(doc.ID, "document id"); err != nil {
		return err
	}
	if err := validateString(doc.WorkspaceID, "ws_id"); err != nil {
		return err
	}
	return validateString(doc.SourceFile, "source_file")
}

func validateJob(job *model.Job) error {
	if job == nil {
		return fmt.Errorf("%w: job", ErrNilParameter)
	}
	return validateString(job.ID, "job id")
}
