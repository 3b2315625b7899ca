// Package fetcher loads vendor product pages and recovers the raw fields the
// extractor works from.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/fidget-scraper/internal/browser"
	"github.com/maltedev/fidget-scraper/internal/ratelimit"
)

// PageLoader renders a URL. *browser.Browser is the production implementation.
type PageLoader interface {
	Snapshot(ctx context.Context, url string) (*browser.Snapshot, error)
}

type Fetcher struct {
	loader  PageLoader
	parser  *ProductParser
	limiter ratelimit.Limiter
	logger  *slog.Logger
}

func New(loader PageLoader, limiter ratelimit.Limiter, logger *slog.Logger) *Fetcher {
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		loader:  loader,
		parser:  NewProductParser(),
		limiter: limiter,
		logger:  logger.With("component", "fetcher"),
	}
}

// Fetch renders url and runs the page heuristics. Any failure is logged and
// returned; the caller treats it as "no result".
func (f *Fetcher) Fetch(ctx context.Context, url string) (*RawProduct, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	f.logger.Info("Fetching page", "url", url)

	snap, err := f.loader.Snapshot(ctx, url)
	if err != nil {
		f.logger.Error("Failed to load page", "url", url, "error", err)
		return nil, fmt.Errorf("load %s: %w", url, err)
	}
	if snap.URL == "" {
		snap.URL = url
	}

	raw, err := f.parser.Parse(snap)
	if err != nil {
		f.logger.Error("Failed to parse page", "url", url, "error", err)
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	f.logger.Debug("Recovered raw product",
		"url", url,
		"title", raw.Title,
		"image", raw.ImageURL,
		"description_len", len(raw.Description),
		"content_len", len(raw.Content),
	)
	return raw, nil
}
