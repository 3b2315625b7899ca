// Package jobs tracks runs submitted over HTTP and executes them one at a
// time on a background worker.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/fidget-scraper/internal/pipeline"
	"github.com/maltedev/fidget-scraper/internal/queue"
)

var ErrRunNotFound = errors.New("run not found")

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// Runner executes a batch under a caller-chosen run id.
type Runner interface {
	RunWithID(ctx context.Context, runID uuid.UUID, tasks []pipeline.Task) *pipeline.Summary
}

// Run is the externally visible state of a submitted batch.
type Run struct {
	ID          uuid.UUID             `json:"id"`
	Status      string                `json:"status"`
	Total       int                   `json:"total"`
	Succeeded   int                   `json:"succeeded"`
	Results     []pipeline.TaskResult `json:"results,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

type Manager struct {
	queue  queue.Queue
	runner Runner
	logger *slog.Logger

	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
}

func NewManager(q queue.Queue, runner Runner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		queue:  q,
		runner: runner,
		logger: logger.With("component", "job_manager"),
		runs:   make(map[uuid.UUID]*Run),
	}
}

// CreateRun queues tasks and returns the pending run.
func (m *Manager) CreateRun(tasks []pipeline.Task) (*Run, error) {
	qr := queue.NewRun(tasks)
	run := &Run{
		ID:        qr.ID,
		Status:    StatusPending,
		Total:     len(tasks),
		CreatedAt: qr.SubmittedAt,
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	if err := m.queue.Push(qr); err != nil {
		m.mu.Lock()
		delete(m.runs, run.ID)
		m.mu.Unlock()
		return nil, err
	}

	m.logger.Info("run created", "id", run.ID, "tasks", len(tasks))
	return m.snapshot(run), nil
}

func (m *Manager) GetRun(id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return m.snapshot(run), nil
}

// ListRuns returns every known run, newest first, without per-task results.
func (m *Manager) ListRuns() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		cp := m.snapshot(run)
		cp.Results = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// snapshot must be called with mu held.
func (m *Manager) snapshot(run *Run) *Run {
	cp := *run
	cp.Results = append([]pipeline.TaskResult(nil), run.Results...)
	return &cp
}
