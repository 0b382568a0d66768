package weather

import (
	"time"
)

// Observation is one hourly weather reading for a location. It is immutable
// once fetched and shared by every waypoint in the same bucket.
type Observation struct {
	TemperatureC             float64 `json:"temperature_c"`
	ApparentTemperatureC     float64 `json:"apparent_temperature_c"`
	PrecipitationMM          float64 `json:"precipitation_mm"`
	PrecipitationProbability int     `json:"precipitation_probability"` // 0-100
	WeatherCode              int     `json:"weather_code"`              // WMO code
	Description              string  `json:"weather_description"`
	WindSpeedKmh             float64 `json:"wind_speed_kmh"`
	HumidityPercent          int     `json:"humidity_percent"`

	// Provider and Time describe where the reading came from.
	Provider string    `json:"provider,omitempty"`
	Time     time.Time `json:"time"` // always UTC, start of the hour
}

// WMO weather interpretation codes.
const (
	CodeClearSky           = 0
	CodeMainlyClear        = 1
	CodePartlyCloudy       = 2
	CodeOvercast           = 3
	CodeFog                = 45
	CodeRimeFog            = 48
	CodeLightDrizzle       = 51
	CodeModerateDrizzle    = 53
	CodeDenseDrizzle       = 55
	CodeLightFreezingDrz   = 56
	CodeDenseFreezingDrz   = 57
	CodeSlightRain         = 61
	CodeModerateRain       = 63
	CodeHeavyRain          = 65
	CodeLightFreezingRain  = 66
	CodeHeavyFreezingRain  = 67
	CodeSlightSnow         = 71
	CodeModerateSnow       = 73
	CodeHeavySnow          = 75
	CodeSnowGrains         = 77
	CodeSlightRainShowers  = 80
	CodeModerateRainShower = 81
	CodeViolentRainShowers = 82
	CodeSlightSnowShowers  = 85
	CodeHeavySnowShowers   = 86
	CodeThunderstorm       = 95
	CodeThunderstormHail   = 96
	CodeThunderstormHeavy  = 99
)

var descriptions = map[int]string{
	CodeClearSky:           "Clear sky",
	CodeMainlyClear:        "Mainly clear",
	CodePartlyCloudy:       "Partly cloudy",
	CodeOvercast:           "Overcast",
	CodeFog:                "Fog",
	CodeRimeFog:            "Depositing rime fog",
	CodeLightDrizzle:       "Light drizzle",
	CodeModerateDrizzle:    "Moderate drizzle",
	CodeDenseDrizzle:       "Dense drizzle",
	CodeLightFreezingDrz:   "Light freezing drizzle",
	CodeDenseFreezingDrz:   "Dense freezing drizzle",
	CodeSlightRain:         "Slight rain",
	CodeModerateRain:       "Moderate rain",
	CodeHeavyRain:          "Heavy rain",
	CodeLightFreezingRain:  "Light freezing rain",
	CodeHeavyFreezingRain:  "Heavy freezing rain",
	CodeSlightSnow:         "Slight snow",
	CodeModerateSnow:       "Moderate snow",
	CodeHeavySnow:          "Heavy snow",
	CodeSnowGrains:         "Snow grains",
	CodeSlightRainShowers:  "Slight rain showers",
	CodeModerateRainShower: "Moderate rain showers",
	CodeViolentRainShowers: "Violent rain showers",
	CodeSlightSnowShowers:  "Slight snow showers",
	CodeHeavySnowShowers:   "Heavy snow showers",
	CodeThunderstorm:       "Thunderstorm",
	CodeThunderstormHail:   "Thunderstorm with slight hail",
	CodeThunderstormHeavy:  "Thunderstorm with heavy hail",
}

// Describe returns the human readable name of a WMO code.
func Describe(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "Unknown"
}

// IsAdverse reports whether the code denotes rain, snow, thunderstorm or worse.
func IsAdverse(code int) bool {
	return code >= CodeSlightRain
}
