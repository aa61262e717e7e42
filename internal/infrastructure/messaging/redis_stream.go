// Package messaging delivers outbox messages to a Redis stream.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockflow/internal/infrastructure/storage/postgres"
)

// StreamAdder is the part of the Redis client the publisher needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamPublisher implements postgres.OutboxHandler by appending each message
// to one Redis stream. Consumers read with XREAD / consumer groups.
type StreamPublisher struct {
	client StreamAdder
	stream string
	maxLen int64
}

// NewStreamPublisher creates a publisher for stream. maxLen > 0 trims the
// stream approximately to that many entries.
func NewStreamPublisher(client StreamAdder, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Handle implements postgres.OutboxHandler.
func (p *StreamPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":             msg.ID.String(),
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID.String(),
			"event_type":     msg.EventType,
			"payload":        string(msg.Payload),
			"created_at":     msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

var _ postgres.OutboxHandler = (*StreamPublisher)(nil)
