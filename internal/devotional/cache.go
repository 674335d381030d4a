package devotional

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "devotional:v1:"

// Cache stores fetched days keyed by their yyyymmdd date.
type Cache interface {
	Get(ctx context.Context, date string) (Day, bool, error)
	Set(ctx context.Context, day Day, ttl time.Duration) error
}

// RedisCache keeps days as JSON in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, date string) (Day, bool, error) {
	raw, err := c.client.Get(ctx, cachePrefix+date).Bytes()
	if errors.Is(err, redis.Nil) {
		return Day{}, false, nil
	}
	if err != nil {
		return Day{}, false, fmt.Errorf("load devotional: %w", err)
	}
	var day Day
	if err := json.Unmarshal(raw, &day); err != nil {
		return Day{}, false, fmt.Errorf("decode devotional: %w", err)
	}
	return day, true, nil
}

func (c *RedisCache) Set(ctx context.Context, day Day, ttl time.Duration) error {
	payload, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("encode devotional: %w", err)
	}
	return c.client.Set(ctx, cachePrefix+day.Date, payload, ttl).Err()
}

type memoryEntry struct {
	day     Day
	expires time.Time
}

// MemoryCache is the in-process cache used without Redis.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCache builds an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, date string) (Day, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[date]
	if !ok || !c.now().Before(e.expires) {
		return Day{}, false, nil
	}
	return e.day, true, nil
}

func (c *MemoryCache) Set(_ context.Context, day Day, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[day.Date] = memoryEntry{day: day, expires: c.now().Add(ttl)}
	return nil
}
