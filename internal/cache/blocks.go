package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jengzang/records-timeline/internal/models"
)

// BlockKey identifies one derived view: a user's day at a segment-set version
type BlockKey struct {
	UserID  string
	Date    string
	Version int64
}

// BlockCache caches grouped blocks. Entries of an older version never hit.
type BlockCache interface {
	Get(ctx context.Context, key BlockKey) ([]models.LocationBlock, bool)
	Set(ctx context.Context, key BlockKey, blocks []models.LocationBlock)
	Invalidate(ctx context.Context, userID, date string)
	// InvalidateUser drops every cached day of the user
	InvalidateUser(ctx context.Context, userID string)
}

type memoryEntry struct {
	version int64
	blocks  []models.LocationBlock
	expires time.Time
}

// MemoryCache is a process-local BlockCache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a memory cache. ttl <= 0 keeps entries until invalidated.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func dayKey(userID, date string) string {
	return userID + "|" + date
}

// Get returns cached blocks for key
func (c *MemoryCache) Get(_ context.Context, key BlockKey) ([]models.LocationBlock, bool) {
	c.mu.RLock()
	e, ok := c.entries[dayKey(key.UserID, key.Date)]
	c.mu.RUnlock()
	if !ok || e.version != key.Version {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		return nil, false
	}
	return e.blocks, true
}

// Set stores blocks for key, replacing any other version of the day
func (c *MemoryCache) Set(_ context.Context, key BlockKey, blocks []models.LocationBlock) {
	e := memoryEntry{version: key.Version, blocks: blocks}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[dayKey(key.UserID, key.Date)] = e
	c.mu.Unlock()
}

// Invalidate drops the day
func (c *MemoryCache) Invalidate(_ context.Context, userID, date string) {
	c.mu.Lock()
	delete(c.entries, dayKey(userID, date))
	c.mu.Unlock()
}

// InvalidateUser drops every day of the user
func (c *MemoryCache) InvalidateUser(_ context.Context, userID string) {
	prefix := userID + "|"
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// RedisCache is a BlockCache shared between processes
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a redis-backed cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type redisEntry struct {
	Version int64                  `json:"version"`
	Blocks  []models.LocationBlock `json:"blocks"`
}

func redisBlockKey(userID, date string) string {
	return fmt.Sprintf("timeline:blocks:%s:%s", userID, date)
}

// Get returns cached blocks for key. Redis errors count as a miss.
func (c *RedisCache) Get(ctx context.Context, key BlockKey) ([]models.LocationBlock, bool) {
	raw, err := c.client.Get(ctx, redisBlockKey(key.UserID, key.Date)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[BlockCache] get %s/%s: %v", key.UserID, key.Date, err)
		}
		return nil, false
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil || e.Version != key.Version {
		return nil, false
	}
	return e.Blocks, true
}

// Set stores blocks for key
func (c *RedisCache) Set(ctx context.Context, key BlockKey, blocks []models.LocationBlock) {
	raw, err := json.Marshal(redisEntry{Version: key.Version, Blocks: blocks})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisBlockKey(key.UserID, key.Date), raw, c.ttl).Err(); err != nil {
		log.Printf("[BlockCache] set %s/%s: %v", key.UserID, key.Date, err)
	}
}

// Invalidate drops the day
func (c *RedisCache) Invalidate(ctx context.Context, userID, date string) {
	if err := c.client.Del(ctx, redisBlockKey(userID, date)).Err(); err != nil {
		log.Printf("[BlockCache] invalidate %s/%s: %v", userID, date, err)
	}
}

// InvalidateUser scans and deletes the user's day keys
func (c *RedisCache) InvalidateUser(ctx context.Context, userID string) {
	iter := c.client.Scan(ctx, 0, redisBlockKey(userID, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("[BlockCache] scan %s: %v", userID, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[BlockCache] invalidate %s: %v", userID, err)
	}
}
