package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	URL         string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Ollama talks to an Ollama /api/chat endpoint with streaming enabled.
type Ollama struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Ollama {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ollama{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With("component", "ollama"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatChunk struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// Complete posts prompt as a single user message and concatenates the
// message content of every streamed line. Lines that are not valid JSON are
// skipped.
func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody, err := json.Marshal(chatRequest{
		Model:    o.opts.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
		Options:  map[string]any{"temperature": o.opts.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.opts.URL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var (
		out     strings.Builder
		skipped int
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			skipped++
			continue
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		out.WriteString(chunk.Message.Content)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read response stream: %w", err)
	}

	if skipped > 0 {
		o.logger.Debug("Skipped malformed stream lines", "count", skipped)
	}
	return out.String(), nil
}
