package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// eventField is the field name for the serialized event in stream
	// messages.
	eventField = "event"

	// defaultMaxStreamLen bounds stream growth when no limit is set.
	defaultMaxStreamLen = 10000

	defaultConnectTimeout = 2 * time.Second
)

// StreamsConfig holds configuration for the Redis Streams publisher.
type StreamsConfig struct {
	Addr         string
	Password     string `json:"-"`
	DB           int
	Stream       string
	MaxStreamLen int64
}

// StreamsPublisher publishes events to a Redis stream.
type StreamsPublisher struct {
	client       *redis.Client
	stream       string
	maxStreamLen int64
}

// NewStreamsPublisher connects to Redis and verifies the connection.
func NewStreamsPublisher(cfg StreamsConfig) (*StreamsPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = "jobradar:events"
	}
	maxLen := cfg.MaxStreamLen
	if maxLen <= 0 {
		maxLen = defaultMaxStreamLen
	}

	return &StreamsPublisher{client: client, stream: stream, maxStreamLen: maxLen}, nil
}

// Publish appends the event to the stream, trimming to the length cap.
func (p *StreamsPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	if addErr := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxStreamLen,
		Approx: true,
		Values: map[string]any{eventField: string(data)},
	}).Err(); addErr != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, addErr)
	}
	return nil
}

// Close closes the underlying Redis client.
func (p *StreamsPublisher) Close() error {
	return p.client.Close()
}
