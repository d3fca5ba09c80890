/**
 * @description
 * Redis-backed webhook event dedupe. The processor retries webhook deliveries
 * aggressively, so the first layer of defense is a SET NX on the event id
 * with a TTL. The store's status-gated updates remain the correctness
 * backstop; this layer only saves the redundant work.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventDeduper reports whether a webhook event id is seen for the first time.
type EventDeduper interface {
	FirstDelivery(ctx context.Context, eventID string) bool
}

// NoopEventDeduper treats every delivery as the first. Used when Redis is not
// configured; idempotency then rests entirely on the conditional updates.
type NoopEventDeduper struct{}

func (d *NoopEventDeduper) FirstDelivery(ctx context.Context, eventID string) bool { return true }

// RedisEventDeduper marks event ids in Redis with SET NX and a TTL.
type RedisEventDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisEventDeduper creates a deduper on an existing Redis client.
func NewRedisEventDeduper(client *redis.Client, prefix string, ttl time.Duration) *RedisEventDeduper {
	if prefix == "" {
		prefix = "gdc:payments:webhook_event"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisEventDeduper{client: client, prefix: prefix, ttl: ttl}
}

// FirstDelivery returns true when this event id has not been seen inside the
// TTL window. Redis failures fail open: a duplicate slipping through is
// harmless, a dropped first delivery is not.
func (d *RedisEventDeduper) FirstDelivery(ctx context.Context, eventID string) bool {
	if eventID == "" {
		return true
	}
	ok, err := d.client.SetNX(ctx, d.prefix+":"+eventID, 1, d.ttl).Result()
	if err != nil {
		log.Printf("level=warn component=event_dedupe msg=\"redis setnx failed; failing open\" event_id=%s err=%v", eventID, err)
		return true
	}
	return ok
}
