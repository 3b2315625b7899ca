// Package queue holds submitted scrape runs until the run worker picks them up.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/fidget-scraper/internal/pipeline"
)

var (
	ErrQueueClosed = errors.New("queue is closed")
	ErrEmptyRun    = errors.New("run has no tasks")
)

// Run is a batch of tasks submitted together.
type Run struct {
	ID          uuid.UUID
	Tasks       []pipeline.Task
	SubmittedAt time.Time
}

func NewRun(tasks []pipeline.Task) *Run {
	return &Run{
		ID:          uuid.New(),
		Tasks:       tasks,
		SubmittedAt: time.Now().UTC(),
	}
}

type Queue interface {
	Push(run *Run) error
	Pop(ctx context.Context) (*Run, error)
	Size() int
	Close() error
}

// InMemoryQueue is a FIFO. Pop blocks until a run arrives, the queue is
// closed and drained, or ctx is done.
type InMemoryQueue struct {
	mu     sync.Mutex
	runs   []*Run
	notify chan struct{}
	closed bool
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		notify: make(chan struct{}, 1),
	}
}

func (q *InMemoryQueue) Push(run *Run) error {
	if run == nil || len(run.Tasks) == 0 {
		return ErrEmptyRun
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.runs = append(q.runs, run)
	q.signal()
	return nil
}

func (q *InMemoryQueue) Pop(ctx context.Context) (*Run, error) {
	for {
		q.mu.Lock()
		if len(q.runs) > 0 {
			run := q.runs[0]
			q.runs[0] = nil
			q.runs = q.runs[1:]
			if len(q.runs) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return run, nil
		}
		if q.closed {
			q.signal()
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.runs)
}

// Close rejects further pushes. Runs already queued can still be popped.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.signal()
	}
	return nil
}

// signal must be called with mu held.
func (q *InMemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
