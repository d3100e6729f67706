package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryLog remembers processed delivery ids so redeliveries can short-circuit.
type DeliveryLog interface {
	Seen(ctx context.Context, deliveryID string) (bool, error)
	MarkProcessed(ctx context.Context, deliveryID string) error
}

// RedisDeliveryLog stores delivery ids as expiring keys.
type RedisDeliveryLog struct {
	client *redis.Client
	ttl    time.Duration
}

const deliveryKeyPrefix = "webhook:delivery:"

// NewRedisDeliveryLog builds a Redis-backed log.
func NewRedisDeliveryLog(client *redis.Client, ttl time.Duration) *RedisDeliveryLog {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeliveryLog{client: client, ttl: ttl}
}

func (l *RedisDeliveryLog) Seen(ctx context.Context, deliveryID string) (bool, error) {
	n, err := l.client.Exists(ctx, deliveryKeyPrefix+deliveryID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisDeliveryLog) MarkProcessed(ctx context.Context, deliveryID string) error {
	return l.client.Set(ctx, deliveryKeyPrefix+deliveryID, time.Now().UTC().Format(time.RFC3339), l.ttl).Err()
}

// NoopDeliveryLog never remembers anything. Idempotency then rests on the store.
type NoopDeliveryLog struct{}

func (NoopDeliveryLog) Seen(context.Context, string) (bool, error) { return false, nil }

func (NoopDeliveryLog) MarkProcessed(context.Context, string) error { return nil }
