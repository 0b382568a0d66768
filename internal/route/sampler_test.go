package route

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/weather"
)

var departure = time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)

var (
	p0 = geo.Point{Lat: 37.7749, Lng: -122.4194}
	p1 = geo.Point{Lat: 37.7839, Lng: -122.4094}
	p2 = geo.Point{Lat: 37.7929, Lng: -122.3994}
	p3 = geo.Point{Lat: 37.8019, Lng: -122.3894}
)

// makeStep builds a step whose reported distance matches its polyline.
func makeStep(duration float64, points ...geo.Point) Step {
	var dist float64
	for i := 0; i+1 < len(points); i++ {
		dist += geo.HaversineMeters(points[i], points[i+1])
	}
	return Step{Points: points, DistanceMeters: dist, DurationSeconds: duration}
}

func TestSampleWaypointCount(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    int
	}{
		{"shorter than cadence", 300, 2},
		{"exactly one cadence", 900, 2},
		{"just over one cadence", 901, 3},
		{"exact multiple", 3600, 5},
		{"non multiple", 3700, 6},
		{"long", 4*3600 + 17*60, 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wps, err := Sample([]Step{makeStep(tt.seconds, p0, p1, p2, p3)}, departure)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(wps) != tt.want {
				t.Fatalf("waypoints = %d, want %d", len(wps), tt.want)
			}

			// ceil(total/cadence)+1, or total/cadence+1 on exact multiples.
			expected := int(math.Ceil(tt.seconds/cadenceSeconds)) + 1
			if len(wps) != expected {
				t.Fatalf("waypoints = %d, formula gives %d", len(wps), expected)
			}
		})
	}
}

func TestSampleFirstAndLast(t *testing.T) {
	steps := []Step{makeStep(700, p0, p1), makeStep(1300, p1, p2, p3)}
	wps, err := Sample(steps, departure)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, last := wps[0], wps[len(wps)-1]
	if first.MinutesFromStart != 0 || first.Location != p0 || !first.EstimatedTime.Equal(departure) {
		t.Fatalf("first waypoint = %+v", first)
	}
	if last.MinutesFromStart != 2000.0/60 {
		t.Fatalf("last offset = %v, want %v", last.MinutesFromStart, 2000.0/60)
	}
	if last.Location != p3 {
		t.Fatalf("last location = %v, want destination %v", last.Location, p3)
	}
	if !last.EstimatedTime.Equal(departure.Add(2000 * time.Second)) {
		t.Fatalf("last time = %v", last.EstimatedTime)
	}
}

func TestSampleMonotonicOffsets(t *testing.T) {
	steps := []Step{makeStep(400, p0, p1), makeStep(0, p1, p1), makeStep(2500, p1, p2, p3)}
	wps, err := Sample(steps, departure)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(wps); i++ {
		if wps[i].MinutesFromStart < wps[i-1].MinutesFromStart {
			t.Fatalf("offsets decrease at %d: %v < %v", i, wps[i].MinutesFromStart, wps[i-1].MinutesFromStart)
		}
		if wps[i].EstimatedTime.Before(wps[i-1].EstimatedTime) {
			t.Fatalf("times decrease at %d", i)
		}
	}
}

func TestSampleStepBoundaryScenario(t *testing.T) {
	// 600s + 300s + 900s = 1800s: samples at 0, 15 and 30 minutes. The 15
	// minute sample falls exactly on the start of the third step.
	steps := []Step{
		makeStep(600, p0, p1),
		makeStep(300, p1, p2),
		makeStep(900, p2, p3),
	}
	wps, err := Sample(steps, departure)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(wps) != 3 {
		t.Fatalf("waypoints = %d, want 3", len(wps))
	}
	for i, want := range []float64{0, 15, 30} {
		if wps[i].MinutesFromStart != want {
			t.Fatalf("waypoint %d offset = %v, want %v", i, wps[i].MinutesFromStart, want)
		}
	}
	if wps[1].Location != p2 {
		t.Fatalf("15 min waypoint = %v, want step boundary %v", wps[1].Location, p2)
	}
	if wps[2].Location != p3 {
		t.Fatalf("30 min waypoint = %v, want destination %v", wps[2].Location, p3)
	}
}

func TestSampleInterpolatesWithinStep(t *testing.T) {
	// One straight step of 1800s: the 15 minute sample sits halfway.
	a := geo.Point{Lat: 10, Lng: 10}
	b := geo.Point{Lat: 10.01, Lng: 10}
	wps, err := Sample([]Step{makeStep(1800, a, b)}, departure)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mid := wps[1].Location
	if math.Abs(mid.Lat-10.005) > 1e-6 || math.Abs(mid.Lng-10) > 1e-9 {
		t.Fatalf("mid waypoint = %v, want ~(10.005, 10)", mid)
	}
}

func TestSampleWalksMultiPointPolyline(t *testing.T) {
	// Three equal ~1.3 km segments over 2700s; 15 minutes is one third of
	// the way, which is the second polyline point.
	step := makeStep(2700, p0, p1, p2, p3)
	wps, err := Sample([]Step{step}, departure)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := geo.HaversineMeters(wps[1].Location, p1); d > 15 {
		t.Fatalf("15 min waypoint is %.1f m from expected vertex", d)
	}
	if d := geo.HaversineMeters(wps[2].Location, p2); d > 15 {
		t.Fatalf("30 min waypoint is %.1f m from expected vertex", d)
	}
}

func TestSampleDegenerateStepDistance(t *testing.T) {
	step := Step{Points: []geo.Point{p0, p1}, DistanceMeters: 0, DurationSeconds: 1800}
	wps, err := Sample([]Step{step}, departure)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wps[1].Location != p0 {
		t.Fatalf("zero-distance step should snap to its first point, got %v", wps[1].Location)
	}
	if wps[2].Location != p1 {
		t.Fatalf("destination = %v, want %v", wps[2].Location, p1)
	}
}

func TestSampleRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  error
	}{
		{"no steps", nil, ErrNoSteps},
		{"zero total", []Step{makeStep(0, p0, p1)}, ErrZeroDuration},
		{"single point", []Step{{Points: []geo.Point{p0}, DurationSeconds: 60}}, ErrInvalidStep},
		{"negative duration", []Step{makeStep(-5, p0, p1), makeStep(100, p1, p2)}, ErrInvalidStep},
		{"nan distance", []Step{{Points: []geo.Point{p0, p1}, DurationSeconds: 60, DistanceMeters: math.NaN()}}, ErrInvalidStep},
		{"bad coordinate", []Step{makeStep(60, p0, geo.Point{Lat: 120})}, ErrInvalidStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wps, err := Sample(tt.steps, departure)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if wps != nil {
				t.Fatalf("expected no waypoints on error")
			}
		})
	}
}

func TestWaypointSetWeatherNeverClears(t *testing.T) {
	wp := &Waypoint{}
	obs := &weather.Observation{WeatherCode: weather.CodeFog}
	wp.SetWeather(obs)
	wp.SetWeather(nil)
	if wp.Weather != obs {
		t.Fatalf("weather was cleared")
	}
}

func TestPolylineRoundTrip(t *testing.T) {
	pts := []geo.Point{p0, p1, p2}
	decoded, err := DecodePolyline(EncodePolyline(pts))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != len(pts) {
		t.Fatalf("decoded %d points, want %d", len(decoded), len(pts))
	}
	for i := range pts {
		if geo.HaversineMeters(pts[i], decoded[i]) > 1 {
			t.Fatalf("point %d = %v, want %v", i, decoded[i], pts[i])
		}
	}
}

func TestDecodePolylineKnownValue(t *testing.T) {
	// Example from the Google polyline algorithm documentation.
	pts, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []geo.Point{{Lat: 38.5, Lng: -120.2}, {Lat: 40.7, Lng: -120.95}, {Lat: 43.252, Lng: -126.453}}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d", len(pts), len(want))
	}
	for i := range want {
		if math.Abs(pts[i].Lat-want[i].Lat) > 1e-6 || math.Abs(pts[i].Lng-want[i].Lng) > 1e-6 {
			t.Fatalf("point %d = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestRouteTotals(t *testing.T) {
	r := Route{Steps: []Step{
		{DurationSeconds: 100, DistanceMeters: 1000},
		{DurationSeconds: 250, DistanceMeters: 4000},
	}}
	if r.TotalDurationSeconds() != 350 || r.TotalDistanceMeters() != 5000 {
		t.Fatalf("totals = %v s / %v m", r.TotalDurationSeconds(), r.TotalDistanceMeters())
	}
}
