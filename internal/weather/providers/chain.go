package providers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/metrics"
	"github.com/i474232898/route-weather/internal/weather"
)

// Chain asks each provider in order and returns the first observation.
type Chain struct {
	providers []weather.Provider
}

// NewChain builds a fallback chain. Nil providers are skipped.
func NewChain(providers ...weather.Provider) *Chain {
	c := &Chain{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ">")
}

func (c *Chain) Fetch(ctx context.Context, loc geo.Point, hour time.Time) (weather.Observation, error) {
	if len(c.providers) == 0 {
		return weather.Observation{}, fmt.Errorf("no weather providers configured")
	}

	var errs []error
	for _, p := range c.providers {
		obs, err := p.Fetch(ctx, loc, hour)
		if err == nil {
			return obs, nil
		}
		metrics.ProviderFailures.WithLabelValues(p.Name()).Inc()
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
		log.Printf("DEBUG: provider %s failed, trying next: %v", p.Name(), err)
	}
	return weather.Observation{}, errors.Join(errs...)
}
