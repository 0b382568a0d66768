package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/route-weather/internal/common"
	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/weather"
)

// WeatherAPIProvider implements the weather.Provider interface for the
// WeatherAPI.com hourly forecast.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg common.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		httpCfg: common.HTTPClientConfig{
			Client:  client,
			Backoff: common.DefaultBackoff,
		},
		circuit: common.NewBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc geo.Point, hour time.Time) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("weatherapi api key is not configured")
	}
	hour = hour.UTC().Truncate(time.Hour)

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", fmt.Sprintf("%.4f,%.4f", loc.Lat, loc.Lng))
		values.Set("unixdt", strconv.FormatInt(hour.Unix(), 10))
		values.Set("days", "1")
		values.Set("aqi", "no")
		values.Set("alerts", "no")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := common.DoRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Forecast struct {
			Forecastday []struct {
				Hour []weatherAPIHour `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("weatherapi: decode: %w", err)
	}

	// Local hours line up with UTC hours except in half-hour zones, so take
	// the closest entry within half an hour.
	var best *weatherAPIHour
	bestGap := int64(30*60 + 1)
	for d := range payload.Forecast.Forecastday {
		for i := range payload.Forecast.Forecastday[d].Hour {
			h := &payload.Forecast.Forecastday[d].Hour[i]
			gap := h.TimeEpoch - hour.Unix()
			if gap < 0 {
				gap = -gap
			}
			if gap < bestGap {
				best, bestGap = h, gap
			}
		}
	}
	if best == nil {
		return weather.Observation{}, fmt.Errorf("weatherapi: %w: %s", weather.ErrNoObservation, hour.Format(time.RFC3339))
	}

	code := mapWeatherAPICode(best.Condition.Code)
	prob := best.ChanceOfRain
	if best.ChanceOfSnow > prob {
		prob = best.ChanceOfSnow
	}

	return weather.Observation{
		TemperatureC:             best.TempC,
		ApparentTemperatureC:     best.FeelsLikeC,
		PrecipitationMM:          best.PrecipMM,
		PrecipitationProbability: int(prob),
		WeatherCode:              code,
		Description:              weather.Describe(code),
		WindSpeedKmh:             best.WindKph,
		HumidityPercent:          int(best.Humidity),
		Provider:                 p.name,
		Time:                     hour,
	}, nil
}

type weatherAPIHour struct {
	TimeEpoch    int64   `json:"time_epoch"`
	TempC        float64 `json:"temp_c"`
	FeelsLikeC   float64 `json:"feelslike_c"`
	PrecipMM     float64 `json:"precip_mm"`
	ChanceOfRain float64 `json:"chance_of_rain"`
	ChanceOfSnow float64 `json:"chance_of_snow"`
	WindKph      float64 `json:"wind_kph"`
	Humidity     float64 `json:"humidity"`
	Condition    struct {
		Code int `json:"code"`
	} `json:"condition"`
}

// weatherAPICodes maps WeatherAPI condition codes onto WMO codes.
var weatherAPICodes = map[int]int{
	1000: weather.CodeClearSky,
	1003: weather.CodePartlyCloudy,
	1006: weather.CodeOvercast,
	1009: weather.CodeOvercast,
	1030: weather.CodeFog,
	1063: weather.CodeSlightRainShowers,
	1066: weather.CodeSlightSnow,
	1069: weather.CodeLightFreezingRain,
	1072: weather.CodeLightFreezingDrz,
	1087: weather.CodeThunderstorm,
	1114: weather.CodeModerateSnow,
	1117: weather.CodeHeavySnow,
	1135: weather.CodeFog,
	1147: weather.CodeRimeFog,
	1150: weather.CodeLightDrizzle,
	1153: weather.CodeLightDrizzle,
	1168: weather.CodeLightFreezingDrz,
	1171: weather.CodeDenseFreezingDrz,
	1180: weather.CodeSlightRain,
	1183: weather.CodeSlightRain,
	1186: weather.CodeModerateRain,
	1189: weather.CodeModerateRain,
	1192: weather.CodeHeavyRain,
	1195: weather.CodeHeavyRain,
	1198: weather.CodeLightFreezingRain,
	1201: weather.CodeHeavyFreezingRain,
	1204: weather.CodeLightFreezingRain,
	1207: weather.CodeHeavyFreezingRain,
	1210: weather.CodeSlightSnow,
	1213: weather.CodeSlightSnow,
	1216: weather.CodeModerateSnow,
	1219: weather.CodeModerateSnow,
	1222: weather.CodeHeavySnow,
	1225: weather.CodeHeavySnow,
	1237: weather.CodeSnowGrains,
	1240: weather.CodeSlightRainShowers,
	1243: weather.CodeModerateRainShower,
	1246: weather.CodeViolentRainShowers,
	1249: weather.CodeLightFreezingRain,
	1252: weather.CodeHeavyFreezingRain,
	1255: weather.CodeSlightSnowShowers,
	1258: weather.CodeHeavySnowShowers,
	1261: weather.CodeSnowGrains,
	1264: weather.CodeSnowGrains,
	1273: weather.CodeThunderstorm,
	1276: weather.CodeThunderstorm,
	1279: weather.CodeThunderstorm,
	1282: weather.CodeThunderstorm,
}

func mapWeatherAPICode(code int) int {
	if wmo, ok := weatherAPICodes[code]; ok {
		return wmo
	}
	return weather.CodeOvercast
}
