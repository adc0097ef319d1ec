package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/payflow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     2 * time.Millisecond,
	Multiplier:   2,
}

func TestWithRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, fastRetry)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryGivesUp(t *testing.T) {
	cause := errors.New("still down")
	err := WithRetry(context.Background(), func() error { return cause }, fastRetry)

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, cause)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return &RetryableError{Err: errors.New("bad request"), Retryable: false}
	}, fastRetry)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsRetryable(err))
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error { return errors.New("down") }, service.RetryOptions{
		MaxAttempts:  5,
		InitialDelay: time.Hour,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserError(t *testing.T) {
	err := NewUserError("Workspace not found", ErrNotFound)
	assert.Equal(t, "Workspace not found: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	var userErr *UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Workspace not found", userErr.UserMessage)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("503"), Retryable: true}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerJSON(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	require.NoError(t, SetupLogger(&buf, slog.LevelInfo, "json"))

	slog.Debug("hidden", "a", 1)
	slog.Info("ingested", "facts", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"ingested"`)
	assert.Contains(t, buf.String(), `"facts":3`)

	assert.ErrorIs(t, SetupLogger(&buf, slog.LevelInfo, "xml"), ErrInvalidConfig)
}
