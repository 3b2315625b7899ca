package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/fidget-scraper/internal/queue"
)

// StartWorker drains the queue until ctx is done or the queue is closed.
// Runs never overlap.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("run worker started")

	for {
		qr, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
				m.logger.Info("run worker stopping")
				return
			}
			m.logger.Error("failed to pop run", "error", err)
			continue
		}
		m.process(ctx, qr)
	}
}

func (m *Manager) process(ctx context.Context, qr *queue.Run) {
	started := time.Now().UTC()
	m.update(qr, func(run *Run) {
		run.Status = StatusRunning
		run.StartedAt = &started
	})

	m.logger.Info("processing run", "id", qr.ID, "tasks", len(qr.Tasks))
	summary := m.runner.RunWithID(ctx, qr.ID, qr.Tasks)

	completed := time.Now().UTC()
	m.update(qr, func(run *Run) {
		run.Status = StatusCompleted
		run.Succeeded = summary.Succeeded
		run.Results = summary.Results
		run.CompletedAt = &completed
	})
	m.logger.Info("run completed", "id", qr.ID, "succeeded", summary.Succeeded, "total", summary.Total)
}

func (m *Manager) update(qr *queue.Run, fn func(*Run)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[qr.ID]; ok {
		fn(run)
	}
}
