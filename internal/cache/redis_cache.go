package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"modastore/backend/internal/domain"
)

const generationKey = "reports:gen"

// RedisReportCache namespaces summary keys by a generation counter so a
// single INCR invalidates every cached summary without scanning keys.
type RedisReportCache struct {
	client *redis.Client
}

func NewRedisReportCache(addr string, password string, db int) *RedisReportCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReportCache{client: client}
}

func (c *RedisReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

func (c *RedisReportCache) key(ctx context.Context, from string, to string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		gen = 0
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("reports:summary:%d:%s:%s", gen, from, to), nil
}

func (c *RedisReportCache) Get(ctx context.Context, from string, to string) (*domain.PeriodSummary, bool, error) {
	key, err := c.key(ctx, from, to)
	if err != nil {
		return nil, false, err
	}

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var summary domain.PeriodSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, false, err
	}
	return &summary, true, nil
}

func (c *RedisReportCache) Set(ctx context.Context, from string, to string, value *domain.PeriodSummary, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	key, err := c.key(ctx, from, to)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisReportCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}
