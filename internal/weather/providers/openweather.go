package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/route-weather/internal/common"
	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/weather"
)

// slotWindow is how far a 3-hour forecast slot may sit from the requested hour.
const slotWindow = 90 * time.Minute

// OpenWeatherProvider implements the weather.Provider interface for the
// OpenWeatherMap 5 day / 3 hour forecast.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg common.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweather",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/forecast",
		httpCfg: common.HTTPClientConfig{
			Client:  client,
			Backoff: common.DefaultBackoff,
		},
		circuit: common.NewBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc geo.Point, hour time.Time) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("openweather api key is not configured")
	}
	hour = hour.UTC().Truncate(time.Hour)

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lat", fmt.Sprintf("%.4f", loc.Lat))
		values.Set("lon", fmt.Sprintf("%.4f", loc.Lng))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := common.DoRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []openWeatherSlot `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("openweather: decode: %w", err)
	}

	var best *openWeatherSlot
	bestGap := slotWindow + time.Second
	for i := range payload.List {
		gap := time.Unix(payload.List[i].Dt, 0).Sub(hour)
		if gap < 0 {
			gap = -gap
		}
		if gap < bestGap {
			best, bestGap = &payload.List[i], gap
		}
	}
	if best == nil {
		return weather.Observation{}, fmt.Errorf("openweather: %w: %s", weather.ErrNoObservation, hour.Format(time.RFC3339))
	}

	code := weather.CodeClearSky
	if len(best.Weather) > 0 {
		code = mapOpenWeatherCode(best.Weather[0].ID)
	}

	// Slot precipitation covers three hours.
	precip := (best.Rain.ThreeH + best.Snow.ThreeH) / 3

	return weather.Observation{
		TemperatureC:             best.Main.Temp,
		ApparentTemperatureC:     best.Main.FeelsLike,
		PrecipitationMM:          math.Round(precip*100) / 100,
		PrecipitationProbability: int(math.Round(best.Pop * 100)),
		WeatherCode:              code,
		Description:              weather.Describe(code),
		WindSpeedKmh:             best.Wind.Speed * 3.6,
		HumidityPercent:          int(best.Main.Humidity),
		Provider:                 p.name,
		Time:                     hour,
	}, nil
}

type openWeatherSlot struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s
	} `json:"wind"`
	Rain struct {
		ThreeH float64 `json:"3h"`
	} `json:"rain"`
	Snow struct {
		ThreeH float64 `json:"3h"`
	} `json:"snow"`
	Pop     float64 `json:"pop"`
	Weather []struct {
		ID int `json:"id"`
	} `json:"weather"`
}

// mapOpenWeatherCode maps an OpenWeatherMap condition id onto a WMO code.
func mapOpenWeatherCode(id int) int {
	switch {
	case id >= 200 && id < 300:
		return weather.CodeThunderstorm
	case id >= 300 && id < 400:
		return weather.CodeLightDrizzle
	case id == 500:
		return weather.CodeSlightRain
	case id == 501:
		return weather.CodeModerateRain
	case id >= 502 && id <= 504:
		return weather.CodeHeavyRain
	case id == 511:
		return weather.CodeLightFreezingRain
	case id == 520:
		return weather.CodeSlightRainShowers
	case id == 521:
		return weather.CodeModerateRainShower
	case id == 522 || id == 531:
		return weather.CodeViolentRainShowers
	case id >= 611 && id <= 616:
		return weather.CodeLightFreezingRain
	case id == 600:
		return weather.CodeSlightSnow
	case id == 601:
		return weather.CodeModerateSnow
	case id == 602:
		return weather.CodeHeavySnow
	case id == 620:
		return weather.CodeSlightSnowShowers
	case id == 621 || id == 622:
		return weather.CodeHeavySnowShowers
	case id == 771 || id == 781:
		// Squalls and tornadoes have no WMO hour code; rate them with thunderstorms.
		return weather.CodeThunderstorm
	case id >= 700 && id < 800:
		return weather.CodeFog
	case id == 800:
		return weather.CodeClearSky
	case id == 801:
		return weather.CodeMainlyClear
	case id == 802:
		return weather.CodePartlyCloudy
	case id > 802 && id < 900:
		return weather.CodeOvercast
	default:
		return weather.CodeClearSky
	}
}
