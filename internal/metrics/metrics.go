package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes for WeatherLookups.
const (
	OutcomeFetched = "fetched"
	OutcomeCached  = "cached"
	OutcomeFailed  = "failed"
)

var (
	WeatherLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_lookups_total",
		Help: "Weather bucket lookups by outcome.",
	}, []string{"outcome"})

	WeatherFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weather_fetch_duration_seconds",
		Help:    "Latency of upstream weather fetches.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	WeatherFetchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_fetches_in_flight",
		Help: "Upstream weather fetches currently running.",
	})

	ProviderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_provider_failures_total",
		Help: "Failed fetches per weather provider.",
	}, []string{"provider"})

	PlanRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "route_plans_total",
		Help: "Route weather plans by outcome.",
	}, []string{"outcome"})

	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "route_plan_duration_seconds",
		Help:    "End-to-end duration of route weather plans.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
	})

	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_evictions_total",
		Help: "Entries removed from in-memory caches.",
	}, []string{"cache", "reason"})
)
