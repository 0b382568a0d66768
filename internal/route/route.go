package route

import (
	"fmt"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/weather"
)

// Step is one ordered unit of route geometry with its provider-reported
// distance and duration.
type Step struct {
	Points          []geo.Point
	DistanceMeters  float64
	DurationSeconds float64
}

// Route is one alternative returned by the directions provider.
type Route struct {
	Summary          string
	OverviewPolyline string
	Steps            []Step
}

// TotalDurationSeconds sums step durations.
func (r Route) TotalDurationSeconds() float64 {
	var total float64
	for _, s := range r.Steps {
		total += s.DurationSeconds
	}
	return total
}

// TotalDistanceMeters sums step distances.
func (r Route) TotalDistanceMeters() float64 {
	var total float64
	for _, s := range r.Steps {
		total += s.DistanceMeters
	}
	return total
}

// Waypoint is one sampled point along a route, optionally annotated with
// weather. Weather is shared with every waypoint in the same bucket.
type Waypoint struct {
	Location         geo.Point            `json:"location"`
	MinutesFromStart float64              `json:"minutes_from_start"`
	EstimatedTime    time.Time            `json:"estimated_time"`
	Weather          *weather.Observation `json:"weather"`
}

// Position implements weather.Target.
func (w *Waypoint) Position() (geo.Point, time.Time) {
	return w.Location, w.EstimatedTime
}

// SetWeather implements weather.Target. A nil observation never clears a
// previously attached one.
func (w *Waypoint) SetWeather(obs *weather.Observation) {
	if obs == nil {
		return
	}
	w.Weather = obs
}

// DecodePolyline decodes a Google encoded polyline into points.
func DecodePolyline(encoded string) ([]geo.Point, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}

	points := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		points = append(points, geo.Point{Lat: c[0], Lng: c[1]})
	}
	return points, nil
}

// EncodePolyline encodes points as a Google polyline.
func EncodePolyline(points []geo.Point) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}
