package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAlignsWideRunes(t *testing.T) {
	table := NewTable("employee", "net_pay")
	table.Row("张三", "9215.00")
	table.Row("alice", "6901.20")

	var buf bytes.Buffer
	require.NoError(t, table.Render(&buf))
	assert.Equal(t, 2, table.Len())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	// The amount column starts at the same cell offset on every row.
	assert.Equal(t, lipgloss.Width("employee  "), lipgloss.Width(lines[1])-lipgloss.Width("9215.00"))
	assert.Equal(t, lipgloss.Width("employee  "), lipgloss.Width(lines[2])-lipgloss.Width("6901.20"))
}

func TestTableShortRows(t *testing.T) {
	table := NewTable("a", "b", "c")
	table.Row("1")

	var buf bytes.Buffer
	require.NoError(t, table.Render(&buf))
	assert.Contains(t, buf.String(), "1\n")
}

func TestProgressRecordsFailures(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 3, "Ingesting files...")

	p.Done("a.xlsx", nil)
	p.Done("b.csv", errors.New("missing column"))
	p.Done("c.json", nil)
	p.Finish()

	assert.Equal(t, []string{"b.csv: missing column"}, p.Failures())
	assert.Contains(t, buf.String(), "b.csv: missing column")
}

func TestFormatStatus(t *testing.T) {
	assert.Contains(t, FormatStatus("completed"), SuccessIcon)
	assert.Contains(t, FormatStatus("failed"), ErrorIcon)
	assert.Contains(t, FormatStatus("in_progress"), ActiveIcon)
	assert.Contains(t, FormatStatus("blocked"), BlockedIcon)
	assert.Contains(t, FormatStatus("pending"), PendingIcon)
}
