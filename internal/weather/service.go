package weather

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/metrics"
)

const (
	// MaxConcurrentFetches is the hard ceiling on upstream fetches in flight.
	MaxConcurrentFetches = 5

	// DefaultFetchTimeout bounds a single bucket lookup.
	DefaultFetchTimeout = 10 * time.Second
)

// Target is anything positioned in space and time that can carry weather.
type Target interface {
	Position() (geo.Point, time.Time)
	SetWeather(obs *Observation)
}

// Summary reports how a resolve pass went.
type Summary struct {
	Targets int
	Keys    int
	Cached  int
	Failed  int
}

// Resolver resolves bucket keys to observations with bounded concurrency and
// fans each result back onto every target sharing the key.
type Resolver struct {
	provider     Provider
	cache        Cache
	fetchTimeout time.Duration
	maxInFlight  int
}

// NewResolver creates a Resolver. cache may be nil; a non-positive timeout
// selects DefaultFetchTimeout.
func NewResolver(provider Provider, cache Cache, fetchTimeout time.Duration) *Resolver {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Resolver{
		provider:     provider,
		cache:        cache,
		fetchTimeout: fetchTimeout,
		maxInFlight:  MaxConcurrentFetches,
	}
}

// Annotate groups targets by bucket key, issues one lookup per distinct key
// and assigns the shared result (nil on failure) to every target of that key.
// Lookup failures never abort sibling lookups and are not returned.
func (r *Resolver) Annotate(ctx context.Context, targets []Target) Summary {
	groups := make(map[BucketKey][]Target)
	var order []BucketKey
	for _, t := range targets {
		loc, at := t.Position()
		key := KeyFor(loc, at)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	sum := Summary{Targets: len(targets), Keys: len(order)}
	if len(order) == 0 {
		return sum
	}

	// Each slot is written once by the task that owns the key and read only
	// after Wait.
	results := make([]*Observation, len(order))
	cached := make([]bool, len(order))

	var g errgroup.Group
	g.SetLimit(r.maxInFlight)
	for i, key := range order {
		i, key := i, key
		g.Go(func() error {
			results[i], cached[i] = r.resolve(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	for i, key := range order {
		if results[i] == nil {
			sum.Failed++
		} else if cached[i] {
			sum.Cached++
		}
		for _, t := range groups[key] {
			t.SetWeather(results[i])
		}
	}

	if sum.Failed > 0 {
		log.Printf("resolver: %d of %d weather lookups failed", sum.Failed, sum.Keys)
	}
	return sum
}

// resolve performs the single lookup for one key. It returns nil when the key
// could not be resolved.
func (r *Resolver) resolve(ctx context.Context, key BucketKey) (*Observation, bool) {
	if err := ctx.Err(); err != nil {
		metrics.WeatherLookups.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, false
	}

	if r.cache != nil {
		obs, err := r.cache.Get(ctx, key)
		if err == nil {
			metrics.WeatherLookups.WithLabelValues(metrics.OutcomeCached).Inc()
			return &obs, true
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("resolver: cache read failed for %s: %v", key, err)
		}
	}

	if r.provider == nil {
		metrics.WeatherLookups.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, false
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	metrics.WeatherFetchesInFlight.Inc()
	start := time.Now()
	obs, err := r.provider.Fetch(fetchCtx, key.Location(), key.Hour)
	metrics.WeatherFetchDuration.WithLabelValues(r.provider.Name()).Observe(time.Since(start).Seconds())
	metrics.WeatherFetchesInFlight.Dec()

	if err != nil {
		log.Printf("resolver: provider %s fetch failed for %s: %v", r.provider.Name(), key, err)
		metrics.WeatherLookups.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, false
	}
	if obs.Description == "" {
		obs.Description = Describe(obs.WeatherCode)
	}
	metrics.WeatherLookups.WithLabelValues(metrics.OutcomeFetched).Inc()

	if r.cache != nil {
		// Write with the parent context; the fetch context may be nearly spent.
		if err := r.cache.Put(ctx, key, obs); err != nil {
			log.Printf("resolver: cache write failed for %s: %v", key, err)
		}
	}
	return &obs, false
}
