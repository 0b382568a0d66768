package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/route"
	"github.com/i474232898/route-weather/internal/weather"
)

// Severity of an advisory.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Wind thresholds in km/h.
const (
	StrongWindKmh    = 50
	DangerousWindKmh = 75
)

// Placeholder replaced by a location phrase when rendering advisory messages.
const placeholder = "{loc}"

// AlongRoute is used when no place name is known.
const AlongRoute = "along the route"

// Advisory is a rule-triggered safety notice for a route. It never feeds
// back into the numeric score.
type Advisory struct {
	Type     string    `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Location geo.Point `json:"location"`

	template string
}

// WithPlace renders the message near a named place.
func (a Advisory) WithPlace(place string) Advisory {
	if a.template == "" {
		return a
	}
	phrase := AlongRoute
	if place = strings.TrimSpace(place); place != "" {
		phrase = "near " + place
	}
	a.Message = strings.ReplaceAll(a.template, placeholder, phrase)
	return a
}

type rule struct {
	typ      string
	severity Severity
	match    func(w *weather.Observation) bool
	template func(w *weather.Observation) string
}

func fixed(s string) func(*weather.Observation) string {
	return func(*weather.Observation) string { return s }
}

func codeIn(codes ...int) func(w *weather.Observation) bool {
	return func(w *weather.Observation) bool {
		for _, c := range codes {
			if w.WeatherCode == c {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{
		typ: "heavy_rain", severity: SeverityDanger,
		match: func(w *weather.Observation) bool {
			return codeIn(weather.CodeHeavyRain, weather.CodeViolentRainShowers)(w) || w.PrecipitationMM >= 7.5
		},
		template: fixed("Heavy rain expected {loc}"),
	},
	{
		typ: "moderate_rain", severity: SeverityWarning,
		match: func(w *weather.Observation) bool {
			return codeIn(weather.CodeModerateRain, weather.CodeModerateRainShower)(w) ||
				(w.PrecipitationMM >= 4.0 && w.PrecipitationMM < 7.5)
		},
		template: fixed("Moderate rain expected {loc}"),
	},
	{
		typ: "freezing_rain", severity: SeverityDanger,
		match: codeIn(weather.CodeLightFreezingDrz, weather.CodeDenseFreezingDrz,
			weather.CodeLightFreezingRain, weather.CodeHeavyFreezingRain),
		template: fixed("Freezing rain/drizzle {loc}: road ice likely"),
	},
	{
		typ: "heavy_snow", severity: SeverityDanger,
		match:    codeIn(weather.CodeModerateSnow, weather.CodeHeavySnow, weather.CodeHeavySnowShowers),
		template: fixed("Heavy snow expected {loc}"),
	},
	{
		typ: "snow", severity: SeverityWarning,
		match:    codeIn(weather.CodeSlightSnow, weather.CodeSnowGrains, weather.CodeSlightSnowShowers),
		template: fixed("Snow expected {loc}"),
	},
	{
		typ: "high_wind", severity: SeverityDanger,
		match: func(w *weather.Observation) bool { return w.WindSpeedKmh >= DangerousWindKmh },
		template: func(w *weather.Observation) string {
			return fmt.Sprintf("Dangerous winds (%d km/h) {loc}", int(math.Round(w.WindSpeedKmh)))
		},
	},
	{
		typ: "high_wind", severity: SeverityWarning,
		match: func(w *weather.Observation) bool {
			return w.WindSpeedKmh >= StrongWindKmh && w.WindSpeedKmh < DangerousWindKmh
		},
		template: func(w *weather.Observation) string {
			return fmt.Sprintf("Strong winds (%d km/h) {loc}", int(math.Round(w.WindSpeedKmh)))
		},
	},
	{
		typ: "thunderstorm", severity: SeverityDanger,
		match:    codeIn(weather.CodeThunderstorm),
		template: fixed("Thunderstorm expected {loc}"),
	},
	{
		typ: "hail", severity: SeverityDanger,
		match:    codeIn(weather.CodeThunderstormHail, weather.CodeThunderstormHeavy),
		template: fixed("Thunderstorm with hail {loc}"),
	},
	{
		typ: "fog", severity: SeverityWarning,
		match:    codeIn(weather.CodeFog, weather.CodeRimeFog),
		template: fixed("Fog {loc}: reduced visibility"),
	},
}

type advisoryKey struct {
	typ      string
	severity Severity
}

// Advisories evaluates the rules on every waypoint and rolls them up per
// (type, severity), keeping the first waypoint that triggered each. The result
// lists danger before warning, then by type.
func Advisories(waypoints []route.Waypoint) []Advisory {
	seen := make(map[advisoryKey]struct{})
	out := make([]Advisory, 0)

	for _, wp := range waypoints {
		w := wp.Weather
		if w == nil {
			continue
		}
		for _, r := range rules {
			if !r.match(w) {
				continue
			}
			k := advisoryKey{r.typ, r.severity}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}

			a := Advisory{
				Type:     r.typ,
				Severity: r.severity,
				Location: wp.Location,
				template: r.template(w),
			}
			out = append(out, a.WithPlace(""))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity == SeverityDanger
		}
		return out[i].Type < out[j].Type
	})
	return out
}
