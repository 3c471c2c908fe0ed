package push

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeGuard decides whether an event is seen for the first time. Database
// webhooks redeliver on timeouts, so a dispatch cycle only runs for the
// first delivery of a given event.
type DedupeGuard interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

// Redis key prefix for delivered event markers.
const keyDispatchedPrefix = "notifier:dispatched:"

// RedisGuard implements DedupeGuard using a SETNX marker with a TTL.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a guard. ttl bounds how long duplicate deliveries
// are recognized; 0 defaults to 24 hours.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// FirstDelivery marks the event as dispatched and reports whether this call
// was the one that set the marker.
func (g *RedisGuard) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyDispatchedPrefix+eventID, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dispatch marker: %w", err)
	}
	return ok, nil
}
