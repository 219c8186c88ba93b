package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline/internal/models"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisGuardAdmitsOneHolder(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	g := NewRedisGuard(client, time.Minute)
	other := NewRedisGuard(client, time.Minute)

	release, ok, err := g.TryAcquire(ctx, "u1", "2025-03-04")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(redisLockKey("u1", "2025-03-04")))
	assert.Equal(t, time.Minute, mr.TTL(redisLockKey("u1", "2025-03-04")))

	_, ok, err = other.TryAcquire(ctx, "u1", "2025-03-04")
	require.NoError(t, err)
	assert.False(t, ok, "a second process must not enter a held day")

	_, ok, err = other.TryAcquire(ctx, "u1", "2025-03-05")
	require.NoError(t, err)
	assert.True(t, ok)

	release()
	release()
	assert.False(t, mr.Exists(redisLockKey("u1", "2025-03-04")))

	_, ok, err = other.TryAcquire(ctx, "u1", "2025-03-04")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuardReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	g := NewRedisGuard(client, time.Minute)
	key := redisLockKey("u1", "2025-03-04")

	stale, ok, err := g.TryAcquire(ctx, "u1", "2025-03-04")
	require.NoError(t, err)
	require.True(t, ok)

	// the first holder outlived its TTL and another pass took the day
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(key))
	_, ok, err = g.TryAcquire(ctx, "u1", "2025-03-04")
	require.NoError(t, err)
	require.True(t, ok)
	current, err := mr.Get(key)
	require.NoError(t, err)

	stale()
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, current, got, "release with an old token must not delete the new lock")
}

func TestRedisGuardUnavailable(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	_, ok, err := NewRedisGuard(client, time.Minute).TryAcquire(context.Background(), "u1", "2025-03-04")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCacheVersioning(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewRedisCache(client, time.Hour)
	blocks := []models.LocationBlock{{ID: "b1", Kind: models.BlockUnknown, SegmentIDs: []string{}}}

	c.Set(ctx, BlockKey{UserID: "u1", Date: "2025-03-04", Version: 1}, blocks)
	assert.Equal(t, time.Hour, mr.TTL(redisBlockKey("u1", "2025-03-04")))

	got, ok := c.Get(ctx, BlockKey{UserID: "u1", Date: "2025-03-04", Version: 1})
	require.True(t, ok)
	assert.Equal(t, blocks, got)

	_, ok = c.Get(ctx, BlockKey{UserID: "u1", Date: "2025-03-04", Version: 2})
	assert.False(t, ok, "stale version must miss")

	require.NoError(t, mr.Set(redisBlockKey("u1", "2025-03-05"), "not json"))
	_, ok = c.Get(ctx, BlockKey{UserID: "u1", Date: "2025-03-05", Version: 1})
	assert.False(t, ok)

	c.Invalidate(ctx, "u1", "2025-03-04")
	_, ok = c.Get(ctx, BlockKey{UserID: "u1", Date: "2025-03-04", Version: 1})
	assert.False(t, ok)
}

func TestRedisCacheInvalidateUser(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewRedisCache(client, time.Hour)
	blocks := []models.LocationBlock{{ID: "b1", Kind: models.BlockUnknown}}

	c.Set(ctx, BlockKey{UserID: "u1", Date: "2025-03-04", Version: 1}, blocks)
	c.Set(ctx, BlockKey{UserID: "u1", Date: "2025-03-05", Version: 1}, blocks)
	c.Set(ctx, BlockKey{UserID: "u2", Date: "2025-03-04", Version: 1}, blocks)

	c.InvalidateUser(ctx, "u1")
	assert.False(t, mr.Exists(redisBlockKey("u1", "2025-03-04")))
	assert.False(t, mr.Exists(redisBlockKey("u1", "2025-03-05")))
	assert.True(t, mr.Exists(redisBlockKey("u2", "2025-03-04")))

	c.InvalidateUser(ctx, "nobody")

	// redis going away degrades to misses
	mr.Close()
	_, ok := c.Get(ctx, BlockKey{UserID: "u2", Date: "2025-03-04", Version: 1})
	assert.False(t, ok)
	c.Set(ctx, BlockKey{UserID: "u2", Date: "2025-03-04", Version: 2}, blocks)
}
