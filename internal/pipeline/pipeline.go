// Package pipeline runs scrape tasks (URL, group) through fetch, extraction,
// normalization, image download and catalog merge on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/fidget-scraper/internal/catalog"
	"github.com/maltedev/fidget-scraper/internal/database"
	"github.com/maltedev/fidget-scraper/internal/events"
	"github.com/maltedev/fidget-scraper/internal/extractor"
	"github.com/maltedev/fidget-scraper/internal/fetcher"
	"golang.org/x/sync/errgroup"
)

var ErrNoVariants = errors.New("no variant with both material and weight")

// Task is one product page destined for one catalog group.
type Task struct {
	URL   string `json:"url" yaml:"url"`
	Group string `json:"group" yaml:"group"`
}

type TaskResult struct {
	Task
	Success  bool          `json:"success"`
	Entries  int           `json:"entries"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

type Summary struct {
	RunID      uuid.UUID    `json:"run_id"`
	Total      int          `json:"total"`
	Succeeded  int          `json:"succeeded"`
	Results    []TaskResult `json:"results"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.RawProduct, error)
}

type Extractor interface {
	Extract(ctx context.Context, raw *fetcher.RawProduct) (*extractor.Product, error)
}

type ImageDownloader interface {
	Download(ctx context.Context, url, group, name string) (string, error)
}

type Merger interface {
	AppendEntries(ctx context.Context, group string, entries []catalog.Entry) error
}

// Journal records runs somewhere durable. All methods are best effort.
type Journal interface {
	StartRun(ctx context.Context, id uuid.UUID, total int, startedAt time.Time) error
	RecordResult(ctx context.Context, rec database.ResultRecord) error
	FinishRun(ctx context.Context, id uuid.UUID, succeeded int, finishedAt time.Time) error
}

type Dependencies struct {
	Fetcher   Fetcher
	Extractor Extractor
	Images    ImageDownloader
	Catalog   Merger
	Publisher events.Publisher
	Journal   Journal
	Logger    *slog.Logger
}

type Options struct {
	Workers int
	// ImagePrefix is prepended to downloaded image paths in entries.
	ImagePrefix string
}

func DefaultOptions() Options {
	return Options{Workers: 4, ImagePrefix: "images"}
}

type Pipeline struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger
}

func New(deps Dependencies, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.Journal == nil {
		deps.Journal = NoopJournal{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: logger.With("component", "pipeline"),
	}
}

// Run processes every task with at most Workers in flight and waits for all
// of them. A failing task never stops the others. Results keep submission
// order.
func (p *Pipeline) Run(ctx context.Context, tasks []Task) *Summary {
	return p.RunWithID(ctx, uuid.New(), tasks)
}

func (p *Pipeline) RunWithID(ctx context.Context, runID uuid.UUID, tasks []Task) *Summary {
	summary := &Summary{
		RunID:     runID,
		Total:     len(tasks),
		Results:   make([]TaskResult, len(tasks)),
		StartedAt: time.Now().UTC(),
	}

	logger := p.logger.With("run_id", runID)
	logger.Info("Starting run", "tasks", len(tasks), "workers", p.opts.Workers)

	if err := p.deps.Journal.StartRun(ctx, runID, len(tasks), summary.StartedAt); err != nil {
		logger.Warn("Failed to journal run start", "error", err)
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			res := p.process(ctx, runID, task)
			summary.Results[i] = res
			p.journalResult(ctx, logger, runID, res)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range summary.Results {
		if res.Success {
			summary.Succeeded++
		}
	}
	summary.FinishedAt = time.Now().UTC()

	// the run row is finished even when ctx was cancelled mid-run
	finishCtx := context.WithoutCancel(ctx)
	if err := p.deps.Journal.FinishRun(finishCtx, runID, summary.Succeeded, summary.FinishedAt); err != nil {
		logger.Warn("Failed to journal run finish", "error", err)
	}

	logger.Info(fmt.Sprintf("Successfully processed %d out of %d URLs", summary.Succeeded, summary.Total),
		"succeeded", summary.Succeeded,
		"total", summary.Total,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary
}

// process runs a single task end to end. Every failure is logged and folded
// into the returned result.
func (p *Pipeline) process(ctx context.Context, runID uuid.UUID, task Task) TaskResult {
	start := time.Now()
	res := TaskResult{Task: task}

	entries, err := p.runTask(ctx, runID, task)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		p.logger.Error("Task failed", "url", task.URL, "group", task.Group, "error", err)
		return res
	}

	res.Success = true
	res.Entries = len(entries)
	p.logger.Info("Task succeeded", "url", task.URL, "group", task.Group, "entries", len(entries), "duration", res.Duration)
	return res
}

func (p *Pipeline) runTask(ctx context.Context, runID uuid.UUID, task Task) ([]catalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := p.deps.Fetcher.Fetch(ctx, task.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	product, err := p.deps.Extractor.Extract(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	entries := p.BuildEntries(ctx, task.Group, raw, product)
	if len(entries) == 0 {
		return nil, ErrNoVariants
	}

	if err := p.deps.Catalog.AppendEntries(ctx, task.Group, entries); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	payload := &events.FidgetsAddedPayload{
		Group:     task.Group,
		SourceURL: task.URL,
		Entries:   entries,
	}
	if runID != uuid.Nil {
		payload.RunID = runID.String()
	}
	if err := p.deps.Publisher.PublishFidgetsAdded(ctx, payload); err != nil {
		p.logger.Warn("Failed to publish event", "url", task.URL, "group", task.Group, "error", err)
	}

	return entries, nil
}

func (p *Pipeline) journalResult(ctx context.Context, logger *slog.Logger, runID uuid.UUID, res TaskResult) {
	rec := database.ResultRecord{
		RunID:      runID,
		URL:        res.URL,
		Group:      res.Group,
		Success:    res.Success,
		Entries:    res.Entries,
		Error:      res.Error,
		FinishedAt: time.Now().UTC(),
	}
	if err := p.deps.Journal.RecordResult(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("Failed to journal result", "url", res.URL, "error", err)
	}
}

// NoopJournal is used when no database is configured.
type NoopJournal struct{}

func (NoopJournal) StartRun(context.Context, uuid.UUID, int, time.Time) error   { return nil }
func (NoopJournal) RecordResult(context.Context, database.ResultRecord) error   { return nil }
func (NoopJournal) FinishRun(context.Context, uuid.UUID, int, time.Time) error { return nil }
