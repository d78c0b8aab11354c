package events

import (
	"context"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisStreamPublisher appends events to a capped Redis stream.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) (*RedisStreamPublisher, error) {
	if client == nil {
		return nil, errors.New("events: redis client required")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		return nil, errors.New("events: stream name required")
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}, nil
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.encode()
	if err != nil {
		return err
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id": event.ID,
			"type":     event.Type,
			"payload":  string(body),
		},
	}).Err()
}

func (p *RedisStreamPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close is a no-op; the client is owned by the cache.
func (p *RedisStreamPublisher) Close() error { return nil }
