package weather

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/route-weather/internal/geo"
)

var (
	// ErrCacheMiss is returned by a Cache that holds no entry for a key.
	ErrCacheMiss = errors.New("weather cache miss")
	// ErrNoObservation is returned by providers whose payload lacks the requested hour.
	ErrNoObservation = errors.New("no observation for requested hour")
)

// Provider abstracts an hourly weather forecast source (e.g. Open-Meteo, WeatherAPI).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc geo.Point, hour time.Time) (Observation, error)
}

// Cache is an optional keyed store with an explicit TTL shared across requests.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key BucketKey) (Observation, error)
	Put(ctx context.Context, key BucketKey, obs Observation) error
}
