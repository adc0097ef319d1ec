// Package ocr defines the text-extraction boundary for uploads that are not
// structured spreadsheets.
package ocr

import (
	"context"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// Result is what an OCR provider extracted from one file.
type Result struct {
	Confidence decimal.NullDecimal
	Metadata   map[string]any
	Text       string
	Table      [][]string
}

// Client extracts text from images and unstructured documents.
type Client interface {
	Extract(ctx context.Context, path string) (Result, error)
}

// NoopClient is used when no provider is configured. It returns no text and
// metadata explaining why.
type NoopClient struct{}

// Extract implements Client.
func (NoopClient) Extract(_ context.Context, path string) (Result, error) {
	return Result{
		Metadata: map[string]any{
			"provider": "noop",
			"reason":   "OCR integration not configured",
			"filename": filepath.Base(path),
		},
	}, nil
}
