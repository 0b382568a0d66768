package store

import (
	"context"
	"errors"

	"github.com/i474232898/route-weather/internal/weather"
)

// WeatherCache adapts a MemoryStore to the weather.Cache interface.
type WeatherCache struct {
	store *MemoryStore[weather.Observation]
}

func NewWeatherCache(s *MemoryStore[weather.Observation]) *WeatherCache {
	return &WeatherCache{store: s}
}

func (c *WeatherCache) Get(_ context.Context, key weather.BucketKey) (weather.Observation, error) {
	obs, err := c.store.Get(key.String())
	if errors.Is(err, ErrNotFound) {
		return weather.Observation{}, weather.ErrCacheMiss
	}
	return obs, err
}

func (c *WeatherCache) Put(_ context.Context, key weather.BucketKey, obs weather.Observation) error {
	c.store.Put(key.String(), obs)
	return nil
}

// Prune drops expired observations.
func (c *WeatherCache) Prune() int {
	return c.store.Prune()
}

// Name returns the underlying store's metric label.
func (c *WeatherCache) Name() string {
	return c.store.Name()
}
