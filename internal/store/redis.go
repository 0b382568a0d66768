package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/route-weather/internal/weather"
)

const weatherKeyPrefix = "weather:"

// RedisWeatherCache is a weather.Cache shared between instances. Entries are
// stored as JSON and expire through Redis' own TTL.
type RedisWeatherCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisWeatherCache(client *redis.Client, ttl time.Duration) *RedisWeatherCache {
	return &RedisWeatherCache{client: client, ttl: ttl}
}

func (c *RedisWeatherCache) Get(ctx context.Context, key weather.BucketKey) (weather.Observation, error) {
	data, err := c.client.Get(ctx, weatherKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return weather.Observation{}, weather.ErrCacheMiss
	}
	if err != nil {
		return weather.Observation{}, fmt.Errorf("redis get: %w", err)
	}

	var obs weather.Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return weather.Observation{}, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return obs, nil
}

func (c *RedisWeatherCache) Put(ctx context.Context, key weather.BucketKey, obs weather.Observation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, weatherKeyPrefix+key.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (c *RedisWeatherCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
