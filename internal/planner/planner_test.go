package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/route-weather/internal/directions"
	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/places"
	"github.com/i474232898/route-weather/internal/route"
	"github.com/i474232898/route-weather/internal/scoring"
	"github.com/i474232898/route-weather/internal/store"
	"github.com/i474232898/route-weather/internal/weather"
)

var departure = time.Date(2024, 11, 2, 10, 0, 0, 0, time.UTC)

// stubProvider returns one observation everywhere except at failing longitudes.
type stubProvider struct {
	mu      sync.Mutex
	calls   int
	failAll bool
	failLng map[float64]bool
	obs     weather.Observation
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(_ context.Context, loc geo.Point, hour time.Time) (weather.Observation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failAll || p.failLng[loc.Lng] {
		return weather.Observation{}, errors.New("upstream 503")
	}
	obs := p.obs
	obs.Time = hour
	return obs, nil
}

func clearSky() weather.Observation {
	return weather.Observation{TemperatureC: 15, WeatherCode: weather.CodeClearSky, WindSpeedKmh: 10, HumidityPercent: 50}
}

func straightRoute(summary string, duration, distance float64) route.Route {
	return route.Route{
		Summary:          summary,
		OverviewPolyline: summary + "-polyline",
		Steps: []route.Step{{
			Points:          []geo.Point{{Lat: 40.0, Lng: -75.0}, {Lat: 40.0, Lng: -74.0}},
			DistanceMeters:  distance,
			DurationSeconds: duration,
		}},
	}
}

func newPipeline(t *testing.T, p weather.Provider, namer places.Namer) *Pipeline {
	t.Helper()
	model, err := scoring.LoadModel("")
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	return NewPipeline(weather.NewResolver(p, nil, time.Second), scoring.NewEngine(model), namer)
}

func distinctKeys(routes []RouteWithWeather) int {
	keys := make(map[weather.BucketKey]struct{})
	for _, r := range routes {
		for _, wp := range r.Waypoints {
			keys[weather.KeyFor(wp.Location, wp.EstimatedTime)] = struct{}{}
		}
	}
	return len(keys)
}

func TestAnnotateAndScoreDeduplicatesAcrossRoutes(t *testing.T) {
	p := &stubProvider{obs: clearSky()}
	pl := newPipeline(t, p, nil)

	res, err := pl.AnnotateAndScore(context.Background(), []route.Route{
		straightRoute("fast", 1800, 85049),
		straightRoute("slow", 2400, 90500),
	}, departure)
	if err != nil {
		t.Fatalf("AnnotateAndScore: %v", err)
	}

	if len(res.Routes) != 2 {
		t.Fatalf("len(Routes) = %d, want 2", len(res.Routes))
	}
	want := distinctKeys(res.Routes)
	if p.calls != want {
		t.Fatalf("provider calls = %d, want one per distinct key (%d)", p.calls, want)
	}
	total := len(res.Routes[0].Waypoints) + len(res.Routes[1].Waypoints)
	if want >= total {
		t.Fatalf("routes sharing an origin should share at least one key")
	}

	// Shared origin waypoints carry the same observation.
	if res.Routes[0].Waypoints[0].Weather != res.Routes[1].Waypoints[0].Weather {
		t.Fatalf("waypoints in the same bucket must share one observation")
	}
	if res.Recommendation.RecommendedRouteIndex != 0 {
		t.Fatalf("faster route with identical weather should win, got %d", res.Recommendation.RecommendedRouteIndex)
	}
}

func TestAnnotateAndScoreRouteView(t *testing.T) {
	pl := newPipeline(t, &stubProvider{obs: clearSky()}, nil)

	res, err := pl.AnnotateAndScore(context.Background(), []route.Route{
		straightRoute("fast", 1850, 85049),
		straightRoute("slow", 2400, 90550),
	}, departure)
	if err != nil {
		t.Fatalf("AnnotateAndScore: %v", err)
	}

	r0, r1 := res.Routes[0], res.Routes[1]
	if r0.RouteIndex != 0 || r1.RouteIndex != 1 {
		t.Fatalf("route indexes not aligned: %d %d", r0.RouteIndex, r1.RouteIndex)
	}
	if r0.TotalDurationMinutes != 30 || r1.TotalDurationMinutes != 40 {
		t.Fatalf("durations = %d, %d; want 30, 40", r0.TotalDurationMinutes, r1.TotalDurationMinutes)
	}
	if r0.TotalDistanceKm != 85.0 || r1.TotalDistanceKm != 90.6 {
		t.Fatalf("distances = %v, %v; want 85.0, 90.6", r0.TotalDistanceKm, r1.TotalDistanceKm)
	}
	if r0.Summary != "fast" || r0.OverviewPolyline != "fast-polyline" {
		t.Fatalf("route metadata not passed through: %+v", r0)
	}
	if last := r0.Waypoints[len(r0.Waypoints)-1]; last.MinutesFromStart != 1850.0/60 {
		t.Fatalf("last waypoint offset = %v", last.MinutesFromStart)
	}
}

func TestAnnotateAndScorePartialWeatherFailure(t *testing.T) {
	p := &stubProvider{obs: clearSky(), failLng: map[float64]bool{-74.0: true}}
	pl := newPipeline(t, p, nil)

	res, err := pl.AnnotateAndScore(context.Background(), []route.Route{
		straightRoute("a", 1800, 85000),
		straightRoute("b", 2000, 86000),
	}, departure)
	if err != nil {
		t.Fatalf("partial weather failure must not fail the request: %v", err)
	}

	for _, r := range res.Routes {
		last := r.Waypoints[len(r.Waypoints)-1]
		if last.Weather != nil {
			t.Fatalf("failed bucket should leave weather nil")
		}
		if r.Waypoints[0].Weather == nil {
			t.Fatalf("other buckets must keep their weather")
		}
	}
	if idx := res.Recommendation.RecommendedRouteIndex; idx < 0 || idx >= len(res.Routes) {
		t.Fatalf("recommended index %d out of range", idx)
	}
	if res.Weather.Failed == 0 {
		t.Fatalf("summary should count failed keys")
	}
}

func TestAnnotateAndScoreTotalWeatherFailure(t *testing.T) {
	p := &stubProvider{failAll: true}

	res, err := newPipeline(t, p, nil).AnnotateAndScore(context.Background(),
		[]route.Route{straightRoute("only", 1800, 85000)}, departure)
	if err != nil {
		t.Fatalf("AnnotateAndScore: %v", err)
	}
	if n := len(res.Recommendation.Advisories[0]); n != 0 {
		t.Fatalf("no weather means no advisories, got %d", n)
	}
	if res.Recommendation.Scores[0].DurationScore != 100 {
		t.Fatalf("only route should get a full duration score")
	}
}

func TestAnnotateAndScoreRejectsInvalidRoutes(t *testing.T) {
	pl := newPipeline(t, &stubProvider{obs: clearSky()}, nil)

	_, err := pl.AnnotateAndScore(context.Background(), nil, departure)
	if !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("err = %v, want ErrInvalidRoute", err)
	}

	_, err = pl.AnnotateAndScore(context.Background(), []route.Route{
		straightRoute("ok", 1800, 85000),
		{Summary: "empty"},
	}, departure)
	if !errors.Is(err, ErrInvalidRoute) || !errors.Is(err, route.ErrNoSteps) {
		t.Fatalf("err = %v, want ErrInvalidRoute wrapping ErrNoSteps", err)
	}

	_, err = pl.AnnotateAndScore(context.Background(), []route.Route{straightRoute("zero", 0, 85000)}, departure)
	if !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("zero-duration route: err = %v, want ErrInvalidRoute", err)
	}
}

type stubNamer struct {
	name string
	err  error
}

func (n stubNamer) PlaceName(context.Context, geo.Point) (string, error) {
	return n.name, n.err
}

func stormy() weather.Observation {
	return weather.Observation{WeatherCode: weather.CodeHeavyRain, PrecipitationMM: 9, WindSpeedKmh: 20}
}

func firstMessage(t *testing.T, pl *Pipeline) string {
	t.Helper()
	res, err := pl.AnnotateAndScore(context.Background(), []route.Route{straightRoute("wet", 1800, 85000)}, departure)
	if err != nil {
		t.Fatalf("AnnotateAndScore: %v", err)
	}
	advs := res.Recommendation.Advisories[0]
	if len(advs) == 0 {
		t.Fatalf("expected advisories for heavy rain")
	}
	return advs[0].Message
}

func TestAdvisoryPlaceNames(t *testing.T) {
	tests := []struct {
		name  string
		namer *stubNamer
		want  string
	}{
		{"named", &stubNamer{name: "Trenton, NJ"}, "Heavy rain expected near Trenton, NJ"},
		{"lookup failure", &stubNamer{err: errors.New("denied")}, "Heavy rain expected near unknown location"},
		{"no namer", nil, "Heavy rain expected along the route"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{obs: stormy()}
			var pl *Pipeline
			if tt.namer == nil {
				pl = newPipeline(t, p, nil)
			} else {
				pl = newPipeline(t, p, tt.namer)
			}
			if got := firstMessage(t, pl); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

type stubDirections struct {
	mu     sync.Mutex
	calls  int
	result directions.Result
	err    error
	block  bool
}

func (d *stubDirections) Routes(ctx context.Context, origin, destination string) (directions.Result, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.block {
		<-ctx.Done()
		return directions.Result{}, ctx.Err()
	}
	return d.result, d.err
}

func newService(t *testing.T, d Directions, timeout time.Duration) *Service {
	t.Helper()
	cache := store.NewMemoryStore[Response]("plans", 100, 30*time.Minute)
	svc := NewService(d, newPipeline(t, &stubProvider{obs: clearSky()}, nil), cache, timeout)
	svc.now = func() time.Time { return departure }
	return svc
}

func TestServicePlanCachesResponses(t *testing.T) {
	d := &stubDirections{result: directions.Result{
		OriginAddress:      "Philadelphia, PA, USA",
		DestinationAddress: "Trenton, NJ, USA",
		Routes:             []route.Route{straightRoute("I-95 N", 1800, 85000)},
	}}
	svc := newService(t, d, 0)

	resp, err := svc.Plan(context.Background(), Request{Origin: "Philadelphia", Destination: "Trenton"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if resp.OriginAddress != "Philadelphia, PA, USA" || len(resp.Routes) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !resp.Routes[0].Waypoints[0].EstimatedTime.Equal(departure) {
		t.Fatalf("departure should default to now")
	}

	later := departure.Add(20 * time.Minute)
	if _, err := svc.Plan(context.Background(), Request{Origin: "  philadelphia ", Destination: "TRENTON", DepartureTime: &later}); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if d.calls != 1 {
		t.Fatalf("same endpoints and hour should hit the cache, directions calls = %d", d.calls)
	}

	nextHour := departure.Add(time.Hour)
	if _, err := svc.Plan(context.Background(), Request{Origin: "Philadelphia", Destination: "Trenton", DepartureTime: &nextHour}); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if d.calls != 2 {
		t.Fatalf("a different hour should miss the cache, directions calls = %d", d.calls)
	}
}

func TestServicePlanDirectionsFailure(t *testing.T) {
	svc := newService(t, &stubDirections{err: directions.ErrNoRoutes}, 0)

	_, err := svc.Plan(context.Background(), Request{Origin: "a", Destination: "b"})
	if !errors.Is(err, ErrDirections) || !errors.Is(err, directions.ErrNoRoutes) {
		t.Fatalf("err = %v, want ErrDirections wrapping ErrNoRoutes", err)
	}
}

func TestServicePlanTimeout(t *testing.T) {
	svc := newService(t, &stubDirections{block: true}, 20*time.Millisecond)

	_, err := svc.Plan(context.Background(), Request{Origin: "a", Destination: "b"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
}

func TestCacheKeyNormalizes(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC)
	a := CacheKey("New York", "Boston", at)
	b := CacheKey("  new york", "BOSTON ", at.Add(50*time.Minute))
	if a != b {
		t.Fatalf("keys should match after normalization")
	}
	if a == CacheKey("New York", "Boston", at.Add(time.Hour)) {
		t.Fatalf("different hours must not share a key")
	}
	if len(a) != 64 {
		t.Fatalf("key should be a hex sha256 digest, got %q", a)
	}
}
