package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/i474232898/route-weather/internal/api/http"
	"github.com/i474232898/route-weather/internal/config"
	"github.com/i474232898/route-weather/internal/directions"
	"github.com/i474232898/route-weather/internal/places"
	"github.com/i474232898/route-weather/internal/planner"
	"github.com/i474232898/route-weather/internal/scheduler"
	"github.com/i474232898/route-weather/internal/scoring"
	"github.com/i474232898/route-weather/internal/store"
	"github.com/i474232898/route-weather/internal/weather"
	"github.com/i474232898/route-weather/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Scoring model is loaded once and shared read-only.
	model, err := scoring.LoadModel(cfg.ModelPath)
	if err != nil {
		log.Fatalf("failed to load scoring model: %v", err)
	}
	log.Printf("INFO: loaded scoring model %s", model.Name())

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Open-Meteo first; keyed providers only when configured.
	provs := []weather.Provider{providers.NewOpenMeteoProvider(httpClient)}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	chain := providers.NewChain(provs...)

	// Weather cache: Redis when configured, in-memory otherwise.
	var prunable []scheduler.Prunable
	var weatherCache weather.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		weatherCache = store.NewRedisWeatherCache(rdb, cfg.WeatherCacheTTL)
		log.Printf("INFO: using redis weather cache at %s", cfg.RedisAddr)
	} else {
		memCache := store.NewWeatherCache(store.NewMemoryStore[weather.Observation]("weather", 0, cfg.WeatherCacheTTL))
		weatherCache = memCache
		prunable = append(prunable, memCache)
	}

	planCache := store.NewMemoryStore[planner.Response]("plans", cfg.PlanCacheMaxEntries, cfg.PlanCacheTTL)
	prunable = append(prunable, planCache)

	// Place names need the Google key as well.
	var namer places.Namer
	if cfg.GoogleMapsAPIKey != "" {
		namer = places.NewGeocoderNamer(cfg.GoogleMapsAPIKey)
	} else {
		log.Println("INFO: GOOGLE_MAPS_API_KEY not set; directions and place names are unavailable")
	}

	resolver := weather.NewResolver(chain, weatherCache, cfg.WeatherFetchTimeout)
	pipeline := planner.NewPipeline(resolver, scoring.NewEngine(model), namer)
	service := planner.NewService(
		directions.NewClient(httpClient, cfg.GoogleMapsAPIKey),
		pipeline,
		planCache,
		cfg.RequestTimeout,
	)

	// Scheduler that periodically sweeps expired cache entries.
	sched := scheduler.New(prunable, cfg.CacheSweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "route-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "route-weather",
			"model":   model.Name(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
