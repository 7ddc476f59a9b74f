package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisEventMarker_MarkProcessed(t *testing.T) {
	marker := NewRedisEventMarker(newTestRedis(t), "")
	ctx := context.Background()

	fresh, err := marker.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	// Second mark of the same ID is not fresh
	fresh, err = marker.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh)

	// Different ID is independent
	fresh, err = marker.MarkProcessed(ctx, "evt-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestRedisEventMarker_IsProcessed(t *testing.T) {
	marker := NewRedisEventMarker(newTestRedis(t), "custom:")
	ctx := context.Background()

	processed, err := marker.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = marker.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)

	processed, err = marker.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestRedisEventMarker_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	marker := NewRedisEventMarker(client, "")
	ctx := context.Background()

	_, err := marker.MarkProcessed(ctx, "evt-1", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := marker.MarkProcessed(ctx, "evt-1", time.Second)
	require.NoError(t, err)
	assert.True(t, fresh)
}
