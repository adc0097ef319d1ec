package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestBatchIsolatesFailures(t *testing.T) {
	config := DefaultConfig()
	config.Concurrency = 2
	h := newHarness(t, config)

	paths := []string{
		testutil.WriteXLSX(t, h.dir, "personal.xlsx", personalSheet()),
		testutil.WriteCSV(t, h.dir, "broken.csv", [][]string{{"employee", "hours"}, {"张三", "160"}}),
		testutil.WriteCSV(t, h.dir, "facts.csv", [][]string{
			{"employee_name", "metric_code", "metric_value"},
			{"李四", "AMOUNT_BASE", "9000"},
		}),
		filepath.Join(h.dir, "missing.xlsx"),
	}

	var mu sync.Mutex
	var notified []string
	statuses, err := h.worker.IngestBatch(context.Background(), testWorkspace, paths, func(s FileStatus) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, filepath.Base(s.Path))
	})
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	assert.False(t, statuses[0].Failed())
	assert.Equal(t, model.JobCompleted, statuses[0].Job.Status)
	assert.True(t, statuses[1].Failed())
	assert.Equal(t, model.JobFailed, statuses[1].Job.Status)
	assert.False(t, statuses[2].Failed())
	assert.True(t, statuses[3].Failed())
	assert.Nil(t, statuses[3].Job, "a file that cannot be copied gets no job")

	assert.ElementsMatch(t, []string{"personal.xlsx", "broken.csv", "facts.csv", "missing.xlsx"}, notified)

	completed, failed := Summary(statuses)
	assert.Equal(t, 2, completed)
	assert.Equal(t, 2, failed)

	// Jobs are numbered in submission order even though parsing is concurrent.
	jobs, err := h.store.ListJobs(context.Background(), testWorkspace)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "personal.xlsx", jobs[0].Filename)
	assert.Equal(t, "broken.csv", jobs[1].Filename)
	assert.Equal(t, "facts.csv", jobs[2].Filename)
	for _, job := range jobs {
		assert.True(t, job.Status.Terminal(), job.ID)
	}
}

func TestIngestBatchCanceled(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.worker.IngestBatch(ctx, testWorkspace, []string{
		testutil.WriteXLSX(t, h.dir, "personal.xlsx", personalSheet()),
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcherIngestsInboxFiles(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	ingested := make(chan *model.Job, 4)
	w, err := NewWatcher(h.worker, testWorkspace, 20*time.Millisecond, func(job *model.Job, err error) {
		assert.NoError(t, err)
		ingested <- job
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the loop a moment to start receiving events.
	time.Sleep(20 * time.Millisecond)
	testutil.WriteCSV(t, w.Dir(), "facts.csv", [][]string{
		{"employee_name", "metric_code", "metric_value"},
		{"张三", "HOUR_TOTAL", "160"},
	})

	select {
	case job := <-ingested:
		require.NotNil(t, job)
		assert.Equal(t, model.JobCompleted, job.Status)
		assert.Equal(t, "facts.csv", job.Filename)
	case <-time.After(5 * time.Second):
		t.Fatal("inbox file was not ingested")
	}
	assert.Len(t, h.facts(t), 1)
}
