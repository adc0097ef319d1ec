package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopClient(t *testing.T) {
	var client Client = NoopClient{}

	got, err := client.Extract(context.Background(), "/uploads/2025-01/scan.png")
	require.NoError(t, err)
	assert.Empty(t, got.Text)
	assert.Empty(t, got.Table)
	assert.False(t, got.Confidence.Valid)
	assert.Equal(t, map[string]any{
		"provider": "noop",
		"reason":   "OCR integration not configured",
		"filename": "scan.png",
	}, got.Metadata)
}
