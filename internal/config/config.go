package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	GoogleMapsAPIKey  string
	WeatherAPIKey     string
	OpenWeatherAPIKey string

	// Outbound HTTP client timeout.
	HTTPTimeout time.Duration
	// WeatherFetchTimeout bounds one bucket lookup.
	WeatherFetchTimeout time.Duration
	// RequestTimeout is the outer deadline of a plan request.
	RequestTimeout time.Duration

	// RedisAddr enables the shared weather cache when set.
	RedisAddr       string
	WeatherCacheTTL time.Duration

	PlanCacheTTL        time.Duration
	PlanCacheMaxEntries int
	CacheSweepInterval  time.Duration

	// ModelPath overrides the embedded scoring model.
	ModelPath string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.GoogleMapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.ModelPath = os.Getenv("MODEL_PATH")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.PlanCacheMaxEntries = getenvInt("PLAN_CACHE_MAX_ENTRIES", 100)

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "30s", &cfg.HTTPTimeout},
		{"WEATHER_FETCH_TIMEOUT", "10s", &cfg.WeatherFetchTimeout},
		{"REQUEST_TIMEOUT", "60s", &cfg.RequestTimeout},
		{"WEATHER_CACHE_TTL", "30m", &cfg.WeatherCacheTTL},
		{"PLAN_CACHE_TTL", "30m", &cfg.PlanCacheTTL},
		{"CACHE_SWEEP_INTERVAL", "5m", &cfg.CacheSweepInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
