package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/fidget-scraper/internal/pipeline"
	"github.com/maltedev/fidget-scraper/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRunner marks every task successful and records call order.
type fakeRunner struct {
	mu      sync.Mutex
	running int
	overlap bool
	ids     []uuid.UUID
}

func (f *fakeRunner) RunWithID(_ context.Context, id uuid.UUID, tasks []pipeline.Task) *pipeline.Summary {
	f.mu.Lock()
	f.running++
	if f.running > 1 {
		f.overlap = true
	}
	f.ids = append(f.ids, id)
	f.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	f.mu.Lock()
	f.running--
	f.mu.Unlock()

	results := make([]pipeline.TaskResult, len(tasks))
	for i, task := range tasks {
		results[i] = pipeline.TaskResult{Task: task, Success: true, Entries: 1}
	}
	return &pipeline.Summary{RunID: id, Total: len(tasks), Succeeded: len(tasks), Results: results}
}

func tasks(n int) []pipeline.Task {
	out := make([]pipeline.Task, n)
	for i := range out {
		out[i] = pipeline.Task{URL: "https://acme.test/p", Group: "Acme"}
	}
	return out
}

func TestRunsCompleteInOrderWithoutOverlap(t *testing.T) {
	q := queue.NewInMemoryQueue()
	runner := &fakeRunner{}
	m := NewManager(q, runner, nil)

	first, err := m.CreateRun(tasks(2))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)
	second, err := m.CreateRun(tasks(3))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.StartWorker(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		run, err := m.GetRun(second.ID)
		return err == nil && run.Status == StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	run, err := m.GetRun(first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, 2, run.Succeeded)
	assert.Len(t, run.Results, 2)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.CompletedAt)

	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, runner.ids)
	assert.False(t, runner.overlap)
}

func TestGetUnknownRun(t *testing.T) {
	m := NewManager(queue.NewInMemoryQueue(), &fakeRunner{}, nil)
	_, err := m.GetRun(uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestCreateRunRejectsEmptyBatch(t *testing.T) {
	m := NewManager(queue.NewInMemoryQueue(), &fakeRunner{}, nil)
	_, err := m.CreateRun(nil)
	assert.ErrorIs(t, err, queue.ErrEmptyRun)
	assert.Empty(t, m.ListRuns())
}

func TestListRunsNewestFirst(t *testing.T) {
	m := NewManager(queue.NewInMemoryQueue(), &fakeRunner{}, nil)
	older, err := m.CreateRun(tasks(1))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newer, err := m.CreateRun(tasks(1))
	require.NoError(t, err)

	runs := m.ListRuns()
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
}

func TestWorkerStopsWhenQueueClosed(t *testing.T) {
	q := queue.NewInMemoryQueue()
	m := NewManager(q, &fakeRunner{}, nil)
	require.NoError(t, q.Close())

	done := make(chan struct{})
	go func() {
		m.StartWorker(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
