package textanalysis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ LinkCache = (*RedisCache)(nil)

const linkCachePrefix = "expertfinder:page:"

// RedisCache is a LinkCache holding page texts in redis for a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements LinkCache.
func (c *RedisCache) Get(ctx context.Context, pageURL string) (string, bool, error) {
	text, err := c.client.Get(ctx, linkCachePrefix+pageURL).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Set implements LinkCache.
func (c *RedisCache) Set(ctx context.Context, pageURL, text string) error {
	return c.client.Set(ctx, linkCachePrefix+pageURL, text, c.ttl).Err()
}
