package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/route-weather/internal/common"
	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/weather"
)

var hourlyParams = []string{
	"temperature_2m",
	"apparent_temperature",
	"precipitation",
	"precipitation_probability",
	"weather_code",
	"wind_speed_10m",
	"relative_humidity_2m",
}

// OpenMeteoProvider implements the weather.Provider interface for the
// Open-Meteo hourly forecast. It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg common.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: common.HTTPClientConfig{
			Client:  client,
			Backoff: common.DefaultBackoff,
		},
		circuit: common.NewBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc geo.Point, hour time.Time) (weather.Observation, error) {
	hour = hour.UTC().Truncate(time.Hour)
	date := hour.Format("2006-01-02")

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%.4f", loc.Lng))
		values.Set("hourly", strings.Join(hourlyParams, ","))
		values.Set("start_date", date)
		values.Set("end_date", date)
		values.Set("timezone", "GMT")
		values.Set("wind_speed_unit", "kmh")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := common.DoRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly *struct {
			Time                     []string   `json:"time"`
			Temperature              []*float64 `json:"temperature_2m"`
			ApparentTemperature      []*float64 `json:"apparent_temperature"`
			Precipitation            []*float64 `json:"precipitation"`
			PrecipitationProbability []*float64 `json:"precipitation_probability"`
			WeatherCode              []*int     `json:"weather_code"`
			WindSpeed                []*float64 `json:"wind_speed_10m"`
			Humidity                 []*float64 `json:"relative_humidity_2m"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("openmeteo: decode: %w", err)
	}
	h := payload.Hourly
	if h == nil {
		return weather.Observation{}, fmt.Errorf("openmeteo: response has no hourly block")
	}

	n := len(h.Time)
	for _, l := range []int{len(h.Temperature), len(h.ApparentTemperature), len(h.Precipitation),
		len(h.PrecipitationProbability), len(h.WeatherCode), len(h.WindSpeed), len(h.Humidity)} {
		if l != n {
			return weather.Observation{}, fmt.Errorf("openmeteo: hourly series lengths differ")
		}
	}

	want := hour.Format("2006-01-02T15:04")
	idx := -1
	for i, ts := range h.Time {
		if ts == want {
			idx = i
			break
		}
	}
	if idx < 0 || h.WeatherCode[idx] == nil {
		return weather.Observation{}, fmt.Errorf("openmeteo: %w: %s", weather.ErrNoObservation, want)
	}

	code := *h.WeatherCode[idx]
	return weather.Observation{
		TemperatureC:             value(h.Temperature[idx]),
		ApparentTemperatureC:     value(h.ApparentTemperature[idx]),
		PrecipitationMM:          value(h.Precipitation[idx]),
		PrecipitationProbability: int(value(h.PrecipitationProbability[idx])),
		WeatherCode:              code,
		Description:              weather.Describe(code),
		WindSpeedKmh:             value(h.WindSpeed[idx]),
		HumidityPercent:          int(value(h.Humidity[idx])),
		Provider:                 p.name,
		Time:                     hour,
	}, nil
}

// value treats a null series entry as zero.
func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
