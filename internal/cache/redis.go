package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedis(addr string, password string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	return &RedisCache{client: client}
}

// Ping verifies the connection, call it once at startup
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (string, error) {
	value, err := c.client.Get(ctx, key).Result()

	switch {
	case err == nil:
		return value, nil
	case !errors.Is(err, redis.Nil):
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}

	value, err = compute(ctx)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set %q: %w", key, err)
	}

	return value, nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
