// Package notify forwards ledger notifications to external observers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tolelom/tolstake/events"
)

const publishTimeout = 2 * time.Second

// Config holds configuration for the Redis publisher.
type Config struct {
	RedisClient *redis.Client
	Channel     string
}

// RedisPublisher publishes every event it receives as JSON on one channel.
// Delivery is best effort: the ledger never depends on it.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedis validates cfg and checks the connection.
func NewRedis(ctx context.Context, cfg *Config) (*RedisPublisher, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if cfg.Channel == "" {
		return nil, errors.New("channel cannot be empty")
	}
	if err := cfg.RedisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisPublisher{client: cfg.RedisClient, channel: cfg.Channel}, nil
}

// Attach subscribes the publisher to every event on emitter.
func (p *RedisPublisher) Attach(emitter *events.Emitter) {
	emitter.SubscribeAll(p.handle)
}

// Publish sends ev to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *RedisPublisher) handle(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		log.Printf("[notify] %v", err)
	}
}
