package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/fidget-scraper/internal/catalog"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeFidgetsAdded is published after entries are merged into a group
	EventTypeFidgetsAdded EventType = "FIDGETS_ADDED"
)

// DefaultStream is the Redis stream catalog events are written to
const DefaultStream = "stream:fidget_catalog"

// FidgetsAddedPayload represents the payload for FIDGETS_ADDED event
type FidgetsAddedPayload struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	RunID     string          `json:"run_id,omitempty"`
	Group     string          `json:"group"`
	SourceURL string          `json:"source_url,omitempty"`
	Entries   []catalog.Entry `json:"entries"`
	Source    string          `json:"source"`
}

// Publisher announces catalog changes to downstream consumers
type Publisher interface {
	PublishFidgetsAdded(ctx context.Context, payload *FidgetsAddedPayload) error
	Close() error
}

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisPublisher writes events straight to a Redis stream
type RedisPublisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

// NewRedisPublisher creates a publisher on top of an existing client
func NewRedisPublisher(client RedisClient, stream string, logger *slog.Logger) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// Connect dials Redis and verifies the connection with a PING
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// PublishFidgetsAdded publishes a FIDGETS_ADDED event
func (p *RedisPublisher) PublishFidgetsAdded(ctx context.Context, payload *FidgetsAddedPayload) error {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeFidgetsAdded)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}
	if payload.Source == "" {
		payload.Source = "fidget-scraper"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"type":       payload.EventType,
			"event_id":   payload.EventID,
			"group":      payload.Group,
			"source_url": payload.SourceURL,
			"count":      len(payload.Entries),
			"timestamp":  fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"event_id", payload.EventID,
		"event_type", payload.EventType,
		"group", payload.Group,
		"stream", p.stream,
		"stream_id", id)

	return nil
}

// Close closes the underlying client
func (p *RedisPublisher) Close() error {
	return p.redis.Close()
}

// NoopPublisher is used when no Redis address is configured
type NoopPublisher struct{}

func (NoopPublisher) PublishFidgetsAdded(context.Context, *FidgetsAddedPayload) error { return nil }

func (NoopPublisher) Close() error { return nil }
