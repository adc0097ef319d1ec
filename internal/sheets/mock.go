package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/service"
)

// MockWriter is a mock implementation of service.ReportWriter for testing.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, results []model.PayrollResult, summary *service.PayrollSummary) error
	LastSummary    *service.PayrollSummary
	WriteCalls     []WriteCall
	LastResults    []model.PayrollResult
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error   error
	Summary *service.PayrollSummary
	Results []model.PayrollResult
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		WriteCalls: make([]WriteCall, 0),
	}
}

// Write records the call and returns the configured error, if any.
func (m *MockWriter) Write(ctx context.Context, results []model.PayrollResult, summary *service.PayrollSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastResults = results
	m.LastSummary = summary

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, results, summary)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Results: results,
		Summary: summary,
		Error:   err,
	})
	return err
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError configures the mock to fail every Write call with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, []model.PayrollResult, *service.PayrollSummary) error {
		return err
	}
}

var _ service.ReportWriter = (*MockWriter)(nil)
var _ service.ReportWriter = (*Writer)(nil)
