package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStream = "rentbook:events"

// RedisStreamConfig describes a capped Redis stream that receives events.
type RedisStreamConfig struct {
	Addr     string
	Password string
	Stream   string
	MaxLen   int64
}

// RedisStreamPublisher appends events to a Redis stream. Consumers read it
// with XREAD or a consumer group.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(cfg RedisStreamConfig) (*RedisStreamPublisher, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = defaultStream
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}, nil
}

// Publish implements Publisher.
func (p *RedisStreamPublisher) Publish(ctx context.Context, event Event) error {
	values, err := streamValues(event)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}

func (p *RedisStreamPublisher) Close() error {
	return p.client.Close()
}

func streamValues(event Event) (map[string]any, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return map[string]any{
		"event_id":    event.ID,
		"routing_key": event.RoutingKey(),
		"sheet":       event.Sheet,
		"record_id":   event.Record,
		"payload":     string(payload),
	}, nil
}
