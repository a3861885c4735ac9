// Package cache provides a redis-backed read-through cache for user
// search results. The realtime core works without it; when unconfigured
// the search responder hits the store directly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rekew/web-dev-project/internal/config"
	"github.com/rekew/web-dev-project/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisSearchCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSearchCache connects to redis and returns a search cache.
func NewRedisSearchCache(cfg config.RedisConfig) (*RedisSearchCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSearchCache{client: client, ttl: cfg.SearchCacheTTL}, nil
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) ([]domain.UserSummary, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var users []domain.UserSummary
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached results: %w", err)
	}
	return users, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, users []domain.UserSummary) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisSearchCache) Close() error {
	return c.client.Close()
}
