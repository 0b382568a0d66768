package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/i474232898/route-weather/internal/route"
)

var (
	ErrNoRoutes        = errors.New("no routes to score")
	ErrDegenerateRoute = errors.New("degenerate route")
	ErrInvalidFeatures = errors.New("invalid feature vector")
)

// Blend weights of the overall score.
const (
	ModelWeight    = 0.8
	DurationWeight = 0.2
)

// Input is one weather-annotated route to be scored.
type Input struct {
	DurationSeconds float64
	Waypoints       []route.Waypoint
}

// RouteScore holds the bounded scores of one route.
type RouteScore struct {
	OverallScore  float64 `json:"overall_score"`
	DurationScore float64 `json:"duration_score"`
	WeatherScore  float64 `json:"weather_score"`
	Reason        string  `json:"recommendation_reason"`
}

// Recommendation is computed once per request. Scores and Advisories are
// index-aligned with the scored routes.
type Recommendation struct {
	RecommendedRouteIndex int          `json:"recommended_route_index"`
	Scores                []RouteScore `json:"scores"`
	Advisories            [][]Advisory `json:"advisories"`
}

// Engine scores routes with an immutable model. It is safe for concurrent use.
type Engine struct {
	model Model
}

// NewEngine creates an Engine around a loaded model.
func NewEngine(model Model) *Engine {
	return &Engine{model: model}
}

// Score computes scores, advisories and the recommended route.
func (e *Engine) Score(routes []Input) (Recommendation, error) {
	if len(routes) == 0 {
		return Recommendation{}, ErrNoRoutes
	}

	minDuration := math.Inf(1)
	for i, r := range routes {
		if !(r.DurationSeconds > 0) || math.IsInf(r.DurationSeconds, 0) {
			return Recommendation{}, fmt.Errorf("%w: route %d has duration %v", ErrDegenerateRoute, i, r.DurationSeconds)
		}
		if len(r.Waypoints) == 0 {
			return Recommendation{}, fmt.Errorf("%w: route %d has no waypoints", ErrDegenerateRoute, i)
		}
		minDuration = math.Min(minDuration, r.DurationSeconds)
	}

	rec := Recommendation{
		Scores:     make([]RouteScore, len(routes)),
		Advisories: make([][]Advisory, len(routes)),
	}
	ratios := make([]float64, len(routes))

	for i, r := range routes {
		f := Extract(r.DurationSeconds, minDuration, r.Waypoints)
		if !f.Finite() {
			return Recommendation{}, fmt.Errorf("%w: route %d: %v", ErrInvalidFeatures, i, f)
		}
		ratios[i] = f[DurationRatio]

		modelScore := clamp(e.model.Predict(f))
		durationScore := DurationScore(f[DurationRatio])
		weatherScore := clamp((1 - f[AvgWeatherSeverity]) * 100)
		overall := clamp(ModelWeight*modelScore + DurationWeight*durationScore)

		rec.Scores[i] = RouteScore{
			OverallScore:  round1(overall),
			DurationScore: round1(durationScore),
			WeatherScore:  round1(weatherScore),
			Reason:        reason(r.DurationSeconds, minDuration, weatherScore),
		}
		rec.Advisories[i] = Advisories(r.Waypoints)
	}

	rec.RecommendedRouteIndex = best(rec.Scores, ratios)
	return rec, nil
}

// DurationScore is 100 for the fastest route and decays as 100/ratio.
func DurationScore(ratio float64) float64 {
	return clamp(100 / math.Max(ratio, 0.01))
}

// best is the argmax of overall score; ties go to the lower duration ratio,
// then to the lower index.
func best(scores []RouteScore, ratios []float64) int {
	idx := 0
	for i := 1; i < len(scores); i++ {
		switch {
		case scores[i].OverallScore > scores[idx].OverallScore:
			idx = i
		case scores[i].OverallScore == scores[idx].OverallScore && ratios[i] < ratios[idx]:
			idx = i
		}
	}
	return idx
}

func reason(duration, minDuration, weatherScore float64) string {
	lead := "Fastest route"
	if extra := int(math.Round((duration - minDuration) / 60)); duration > minDuration && extra > 0 {
		lead = fmt.Sprintf("%d min longer than fastest", extra)
	}

	var conditions string
	switch {
	case weatherScore >= 80:
		conditions = "mostly clear weather"
	case weatherScore >= 60:
		conditions = "fair weather conditions"
	case weatherScore >= 40:
		conditions = "some adverse weather"
	default:
		conditions = "poor weather conditions"
	}
	return lead + " with " + conditions
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
