// Package extractor asks a chat model to turn a raw product page into a
// structured product with variants.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/fidget-scraper/internal/fetcher"
)

var ErrExtractionFailed = errors.New("extraction failed")

// Completer is satisfied by every provider in internal/providers.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

func DefaultOptions() Options {
	return Options{MaxAttempts: 3, RetryDelay: 2 * time.Second}
}

type Extractor struct {
	llm    Completer
	opts   Options
	logger *slog.Logger
}

func New(llm Completer, opts Options, logger *slog.Logger) *Extractor {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		llm:    llm,
		opts:   opts,
		logger: logger.With("component", "extractor"),
	}
}

// Extract prompts the model with raw and parses its reply. A transport error,
// a reply without a JSON object, or an undecodable object each consume one
// attempt and wait RetryDelay before the next. Only variants with both a
// material and a weight are kept.
func (e *Extractor) Extract(ctx context.Context, raw *fetcher.RawProduct) (*Product, error) {
	prompt := BuildPrompt(raw)

	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		product, err := e.attempt(ctx, prompt)
		if err == nil {
			product.Variants = product.CompleteVariants()
			e.logger.Info("Extracted product",
				"url", raw.SourceURL,
				"name", product.Name,
				"variants", len(product.Variants),
				"attempt", attempt,
			)
			return product, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		e.logger.Warn("Extraction attempt failed",
			"url", raw.SourceURL,
			"attempt", attempt,
			"max_attempts", e.opts.MaxAttempts,
			"error", err,
		)

		if attempt < e.opts.MaxAttempts {
			if err := wait(ctx, e.opts.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	e.logger.Error("Giving up on extraction", "url", raw.SourceURL, "error", lastErr)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExtractionFailed, e.opts.MaxAttempts, lastErr)
}

func (e *Extractor) attempt(ctx context.Context, prompt string) (*Product, error) {
	text, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Model reply", "length", len(text))
	return Parse(text)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
