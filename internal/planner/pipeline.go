package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/places"
	"github.com/i474232898/route-weather/internal/route"
	"github.com/i474232898/route-weather/internal/scoring"
	"github.com/i474232898/route-weather/internal/weather"
)

// ErrInvalidRoute marks input routes that cannot be sampled or scored.
var ErrInvalidRoute = errors.New("invalid route")

// RouteWithWeather is one sampled, weather-annotated alternative.
type RouteWithWeather struct {
	RouteIndex           int              `json:"route_index"`
	OverviewPolyline     string           `json:"overview_polyline"`
	Summary              string           `json:"summary"`
	TotalDurationMinutes int              `json:"total_duration_minutes"`
	TotalDistanceKm      float64          `json:"total_distance_km"`
	Waypoints            []route.Waypoint `json:"waypoints"`
}

// Result is the output of one AnnotateAndScore pass.
type Result struct {
	Routes         []RouteWithWeather     `json:"routes"`
	Recommendation scoring.Recommendation `json:"recommendation"`
	Weather        weather.Summary        `json:"-"`
}

// Pipeline samples routes, resolves their weather and scores them.
type Pipeline struct {
	resolver *weather.Resolver
	engine   *scoring.Engine
	namer    places.Namer // optional
}

// NewPipeline creates a Pipeline. A nil namer leaves advisories without place names.
func NewPipeline(resolver *weather.Resolver, engine *scoring.Engine, namer places.Namer) *Pipeline {
	return &Pipeline{resolver: resolver, engine: engine, namer: namer}
}

// AnnotateAndScore turns alternative routes departing at start into
// weather-annotated waypoints plus a recommendation. Weather lookups are
// deduplicated across all routes; lookup failures leave waypoints without
// weather and never fail the call.
func (p *Pipeline) AnnotateAndScore(ctx context.Context, routes []route.Route, start time.Time) (Result, error) {
	if len(routes) == 0 {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRoute, scoring.ErrNoRoutes)
	}

	out := Result{Routes: make([]RouteWithWeather, len(routes))}
	for i, r := range routes {
		wps, err := route.Sample(r.Steps, start)
		if err != nil {
			return Result{}, fmt.Errorf("%w: route %d: %w", ErrInvalidRoute, i, err)
		}
		out.Routes[i] = RouteWithWeather{
			RouteIndex:           i,
			OverviewPolyline:     r.OverviewPolyline,
			Summary:              r.Summary,
			TotalDurationMinutes: int(math.Floor(r.TotalDurationSeconds() / 60)),
			TotalDistanceKm:      math.Round(r.TotalDistanceMeters()/100) / 10,
			Waypoints:            wps,
		}
	}

	// One global pass so overlapping routes share lookups.
	var targets []weather.Target
	for i := range out.Routes {
		for j := range out.Routes[i].Waypoints {
			targets = append(targets, &out.Routes[i].Waypoints[j])
		}
	}
	out.Weather = p.resolver.Annotate(ctx, targets)

	inputs := make([]scoring.Input, len(routes))
	for i, r := range routes {
		inputs[i] = scoring.Input{
			DurationSeconds: r.TotalDurationSeconds(),
			Waypoints:       out.Routes[i].Waypoints,
		}
	}

	rec, err := p.engine.Score(inputs)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRoute, err)
	}
	if p.namer != nil {
		p.labelAdvisories(ctx, rec.Advisories)
	}
	out.Recommendation = rec
	return out, nil
}

// labelAdvisories rewrites advisory messages to name the nearest place.
func (p *Pipeline) labelAdvisories(ctx context.Context, advisories [][]scoring.Advisory) {
	var points []geo.Point
	for _, list := range advisories {
		for _, a := range list {
			points = append(points, a.Location)
		}
	}
	if len(points) == 0 {
		return
	}

	names := places.Resolve(ctx, p.namer, points)
	for i := range advisories {
		for j, a := range advisories[i] {
			advisories[i][j] = a.WithPlace(names[places.KeyOf(a.Location)])
		}
	}
}
