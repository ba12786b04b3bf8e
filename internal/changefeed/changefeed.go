// Package changefeed publishes content-change events so other replicas and
// player gateways can push a refresh instead of waiting for the next poll.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-backend/config"
)

// Event announces that devices were flagged with needs_refresh.
type Event struct {
	Scope    string    `json:"scope"`
	TenantID uuid.UUID `json:"tenant_id"`
	ID       uuid.UUID `json:"id,omitempty"`
	Devices  int64     `json:"devices"`
	At       time.Time `json:"at"`
}

// Notifier publishes change events.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisNotifier publishes events as JSON on a redis pub/sub channel.
type RedisNotifier struct {
	client  publisher
	channel string
}

// NewRedisNotifier connects to redis and checks the connection.
func NewRedisNotifier(ctx context.Context, cfg *config.RedisConfig) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisNotifier{client: client, channel: cfg.Channel}, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// Nop discards events. Used when no redis is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// New returns a redis notifier when cfg names an address, and Nop otherwise.
// A redis that cannot be reached is logged and replaced by Nop; devices still
// see changes through needs_refresh on their next heartbeat.
func New(ctx context.Context, cfg *config.RedisConfig, log *zap.Logger) Notifier {
	if cfg.Addr == "" {
		log.Info("Change feed disabled, no redis address configured")
		return Nop{}
	}
	n, err := NewRedisNotifier(ctx, cfg)
	if err != nil {
		log.Warn("Change feed unavailable, continuing without it", zap.Error(err))
		return Nop{}
	}
	log.Info("Change feed publishing", zap.String("addr", cfg.Addr), zap.String("channel", cfg.Channel))
	return n
}
