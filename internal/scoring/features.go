package scoring

import (
	"math"

	"github.com/i474232898/route-weather/internal/route"
	"github.com/i474232898/route-weather/internal/weather"
)

// Feature indexes into a FeatureVector.
const (
	DurationRatio = iota
	AvgWeatherSeverity
	MaxWeatherSeverity
	AvgWindSpeed
	MaxWindSpeed
	AvgPrecipitation
	MaxPrecipitation
	PctAdverseWaypoints
	AvgPrecipProbability

	NumFeatures
)

// FeatureNames are the artifact names of each feature, in index order.
var FeatureNames = [NumFeatures]string{
	"duration_ratio",
	"avg_weather_severity",
	"max_weather_severity",
	"avg_wind_speed",
	"max_wind_speed",
	"avg_precipitation",
	"max_precipitation",
	"pct_adverse_waypoints",
	"avg_precip_probability",
}

// FeatureVector is the fixed model input for one route.
type FeatureVector [NumFeatures]float64

// Finite reports whether every feature is a finite number.
func (f FeatureVector) Finite() bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// unknownSeverity applies to codes missing from the table.
const unknownSeverity = 0.5

// severity maps WMO codes to 0 (benign) .. 1 (extreme).
var severity = map[int]float64{
	weather.CodeClearSky:           0.0,
	weather.CodeMainlyClear:        0.02,
	weather.CodePartlyCloudy:       0.05,
	weather.CodeOvercast:           0.08,
	weather.CodeFog:                0.15,
	weather.CodeRimeFog:            0.20,
	weather.CodeLightDrizzle:       0.10,
	weather.CodeModerateDrizzle:    0.20,
	weather.CodeDenseDrizzle:       0.30,
	weather.CodeLightFreezingDrz:   0.40,
	weather.CodeDenseFreezingDrz:   0.55,
	weather.CodeSlightRain:         0.20,
	weather.CodeModerateRain:       0.40,
	weather.CodeHeavyRain:          0.70,
	weather.CodeLightFreezingRain:  0.60,
	weather.CodeHeavyFreezingRain:  0.80,
	weather.CodeSlightSnow:         0.35,
	weather.CodeModerateSnow:       0.55,
	weather.CodeHeavySnow:          0.80,
	weather.CodeSnowGrains:         0.40,
	weather.CodeSlightRainShowers:  0.25,
	weather.CodeModerateRainShower: 0.45,
	weather.CodeViolentRainShowers: 0.75,
	weather.CodeSlightSnowShowers:  0.40,
	weather.CodeHeavySnowShowers:   0.75,
	weather.CodeThunderstorm:       0.85,
	weather.CodeThunderstormHail:   0.95,
	weather.CodeThunderstormHeavy:  1.0,
}

// codeSeverity returns the ordinal severity of a WMO code.
func codeSeverity(code int) float64 {
	if s, ok := severity[code]; ok {
		return s
	}
	return unknownSeverity
}

// Extract builds the feature vector of one route. Waypoints without weather
// are excluded from the aggregates; a route with no known weather scores on
// duration alone.
func Extract(durationSeconds, minDurationSeconds float64, waypoints []route.Waypoint) FeatureVector {
	var f FeatureVector
	f[DurationRatio] = durationSeconds / minDurationSeconds

	var n float64
	var sumSev, sumWind, sumPrecip, sumProb, adverse float64
	for _, wp := range waypoints {
		w := wp.Weather
		if w == nil {
			continue
		}
		n++

		sev := codeSeverity(w.WeatherCode)
		sumSev += sev
		f[MaxWeatherSeverity] = math.Max(f[MaxWeatherSeverity], sev)

		sumWind += w.WindSpeedKmh
		f[MaxWindSpeed] = math.Max(f[MaxWindSpeed], w.WindSpeedKmh)

		sumPrecip += w.PrecipitationMM
		f[MaxPrecipitation] = math.Max(f[MaxPrecipitation], w.PrecipitationMM)

		sumProb += float64(w.PrecipitationProbability)
		if weather.IsAdverse(w.WeatherCode) {
			adverse++
		}
	}

	if n == 0 {
		return f
	}

	f[AvgWeatherSeverity] = sumSev / n
	f[AvgWindSpeed] = sumWind / n
	f[AvgPrecipitation] = sumPrecip / n
	f[PctAdverseWaypoints] = adverse / n
	f[AvgPrecipProbability] = sumProb / n
	return f
}
