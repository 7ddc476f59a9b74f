package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEventMarker remembers processed event IDs in Redis. It is suitable
// for distributed deployments where multiple instances share the same
// event channel and must not double-process redelivered events.
type RedisEventMarker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisEventMarker creates a marker backed by an existing Redis client.
func NewRedisEventMarker(client *redis.Client, keyPrefix string) *RedisEventMarker {
	if keyPrefix == "" {
		keyPrefix = "event:processed:"
	}
	return &RedisEventMarker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed marks an event as processed with a TTL.
// Returns true if the event was newly marked, false if it was already
// processed. Uses SETNX for atomicity across instances.
func (s *RedisEventMarker) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + eventID

	result, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}

	return result, nil
}

// IsProcessed checks if an event has already been processed
func (s *RedisEventMarker) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	key := s.keyPrefix + eventID

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if event is processed: %w", err)
	}

	return exists > 0, nil
}
