package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/fidget-scraper/internal/browser"
	"github.com/maltedev/fidget-scraper/internal/catalog"
	"github.com/maltedev/fidget-scraper/internal/config"
	"github.com/maltedev/fidget-scraper/internal/database"
	"github.com/maltedev/fidget-scraper/internal/events"
	"github.com/maltedev/fidget-scraper/internal/extractor"
	"github.com/maltedev/fidget-scraper/internal/fetcher"
	"github.com/maltedev/fidget-scraper/internal/images"
	"github.com/maltedev/fidget-scraper/internal/pipeline"
	"github.com/maltedev/fidget-scraper/internal/providers"
	"github.com/maltedev/fidget-scraper/internal/ratelimit"
	"github.com/maltedev/fidget-scraper/pkg/logger"
)

// app holds what every command needs plus whatever it opened along the way.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *catalog.Store
	closers []func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, closer, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	return &app{
		cfg:     cfg,
		logger:  log,
		store:   catalog.NewStore(cfg.Catalog.File, log),
		closers: []func() error{closer.Close},
	}, nil
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) downloader(ctx context.Context) (*images.Downloader, error) {
	var mirror images.Mirror
	if a.cfg.Images.S3Bucket != "" {
		m, err := images.NewS3Mirror(ctx, a.cfg.Images.S3Region, a.cfg.Images.S3Bucket)
		if err != nil {
			return nil, err
		}
		mirror = m
		a.logger.Info("Mirroring images to S3", "bucket", a.cfg.Images.S3Bucket)
	}

	return images.New(a.store, images.Options{
		Dir:         a.cfg.Catalog.ImagesDir,
		KeyPrefix:   a.cfg.Catalog.ImagePrefix,
		Timeout:     a.cfg.Images.Timeout,
		MaxAttempts: a.cfg.Images.MaxAttempts,
		RetryDelay:  a.cfg.Images.RetryDelay,
		UserAgent:   a.cfg.Images.UserAgent,
	}, mirror, a.logger), nil
}

// manualPipeline serves commands that only append entries and never fetch.
func (a *app) manualPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	dl, err := a.downloader(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Dependencies{
		Images:  dl,
		Catalog: a.store,
		Logger:  a.logger,
	}, a.pipelineOptions()), nil
}

// scrapePipeline starts the browser and LLM client and connects the optional
// Redis and Postgres sinks.
func (a *app) scrapePipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	dl, err := a.downloader(ctx)
	if err != nil {
		return nil, err
	}

	bc := a.cfg.Browser
	opts := browser.DefaultOptions()
	opts.Headless = bc.Headless
	opts.Timeout = bc.Timeout
	opts.UserAgent = bc.UserAgent
	opts.ViewportWidth = bc.ViewportWidth
	opts.ViewportHeight = bc.ViewportHeight
	opts.Locale = bc.Locale
	opts.NavRetries = a.cfg.Scraper.NavRetries
	opts.SettleTime = a.cfg.Scraper.SettleTime
	opts.ScrollPasses = a.cfg.Scraper.ScrollPasses
	opts.ScrollStep = a.cfg.Scraper.ScrollStep

	b, err := browser.New(opts, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	a.onClose(b.Close)

	llm, closeLLM, err := providers.New(ctx, a.cfg.LLM, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(closeLLM)

	limiter := ratelimit.New(a.cfg.Scraper.RateLimitMin, a.cfg.Scraper.RateLimitMax)

	deps := pipeline.Dependencies{
		Fetcher: fetcher.New(b, limiter, a.logger),
		Extractor: extractor.New(llm, extractor.Options{
			MaxAttempts: a.cfg.LLM.MaxAttempts,
			RetryDelay:  a.cfg.LLM.RetryDelay,
		}, a.logger),
		Images:  dl,
		Catalog: a.store,
		Logger:  a.logger,
	}

	if rc := a.cfg.Redis; rc.Enabled() {
		client, err := events.Connect(ctx, rc.Addr, rc.Password, rc.DB)
		if err != nil {
			return nil, err
		}
		pub := events.NewRedisPublisher(client, rc.Stream, a.logger)
		a.onClose(pub.Close)
		deps.Publisher = pub
	}

	if dc := a.cfg.Database; dc.Enabled() {
		db, err := database.New(ctx, database.Config{
			Host:     dc.Host,
			Port:     dc.Port,
			User:     dc.User,
			Password: dc.Password,
			Database: dc.DBName,
			SSLMode:  dc.SSLMode,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { db.Close(); return nil })

		runs := database.NewRunRepository(db)
		if err := runs.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		deps.Journal = runs
	}

	return pipeline.New(deps, a.pipelineOptions()), nil
}

func (a *app) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Workers:     a.cfg.Scraper.Workers,
		ImagePrefix: a.cfg.Catalog.ImagePrefix,
	}
}
