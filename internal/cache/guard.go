package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ReprocessGuard admits at most one reprocess pass per (user, day)
type ReprocessGuard interface {
	// TryAcquire returns a release func and true when the day was free
	TryAcquire(ctx context.Context, userID, date string) (release func(), ok bool, err error)
}

// LocalGuard is an in-process ReprocessGuard
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalGuard creates an in-process guard
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]struct{})}
}

// TryAcquire never blocks
func (g *LocalGuard) TryAcquire(_ context.Context, userID, date string) (func(), bool, error) {
	key := dayKey(userID, date)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return nil, false, nil
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, true, nil
}

// deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisGuard is a ReprocessGuard shared between processes through SETNX.
// The TTL bounds how long a crashed holder blocks the day.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a redis-backed guard
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func redisLockKey(userID, date string) string {
	return fmt.Sprintf("timeline:reprocess:lock:%s:%s", userID, date)
}

// TryAcquire sets the day's lock key if absent
func (g *RedisGuard) TryAcquire(ctx context.Context, userID, date string) (func(), bool, error) {
	key := redisLockKey(userID, date)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire reprocess lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, g.client, []string{key}, token).Err(); err != nil {
				log.Printf("[ReprocessGuard] release %s: %v", key, err)
			}
		})
	}, true, nil
}

// Connect opens a redis client and verifies it with PING
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
