// Package providers selects the chat model backend used for extraction.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/fidget-scraper/internal/config"
	"github.com/maltedev/fidget-scraper/internal/providers/gemini"
	"github.com/maltedev/fidget-scraper/internal/providers/ollama"
)

// Provider sends one prompt and returns the model's full text reply.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the provider named by cfg.Provider. The returned close func
// releases any client the provider holds.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Provider, func() error, error) {
	switch cfg.Provider {
	case "", "ollama":
		p := ollama.New(ollama.Options{
			URL:         cfg.OllamaURL,
			Model:       cfg.OllamaModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		return p, func() error { return nil }, nil
	case "gemini":
		p, err := gemini.New(ctx, gemini.Options{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
