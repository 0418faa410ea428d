package source

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"pharmadash/internal/models"
)

const redisKeyPrefix = "pharmadash:records:"

// RedisCache shares record sets between dashboard instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to url (redis://host:port/db) and pings it.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, period string) ([]models.Record, bool) {
	b, err := c.client.Get(ctx, redisKeyPrefix+period).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("redis get %s: %v", period, err)
		}
		return nil, false
	}
	var rows []models.Record
	if err := json.Unmarshal(b, &rows); err != nil {
		logger.Warnf("redis decode %s: %v", period, err)
		return nil, false
	}
	return rows, true
}

func (c *RedisCache) Set(ctx context.Context, period string, rows []models.Record) {
	b, err := json.Marshal(rows)
	if err != nil {
		logger.Warnf("redis encode %s: %v", period, err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+period, b, c.ttl).Err(); err != nil {
		logger.Warnf("redis set %s: %v", period, err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, period string) {
	if err := c.client.Del(ctx, redisKeyPrefix+period).Err(); err != nil {
		logger.Warnf("redis del %s: %v", period, err)
	}
}

func (c *RedisCache) Close() error { return c.client.Close() }
