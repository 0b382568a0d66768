package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/route-weather/internal/common"
	"github.com/i474232898/route-weather/internal/geo"
	"github.com/i474232898/route-weather/internal/route"
)

var (
	// ErrNoRoutes is returned when the API finds no route between the endpoints.
	ErrNoRoutes = errors.New("no routes found")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("google maps api key is not configured")
)

// Result is the set of alternative driving routes between two places.
type Result struct {
	OriginAddress      string
	DestinationAddress string
	Routes             []route.Route
}

// Client queries the Google Directions API.
type Client struct {
	apiKey  string
	baseURL string
	httpCfg common.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewClient(client *http.Client, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://maps.googleapis.com/maps/api/directions/json",
		httpCfg: common.HTTPClientConfig{
			Client:  client,
			Backoff: common.DefaultBackoff,
		},
		circuit: common.NewBreaker("google-directions"),
	}
}

// Routes fetches every driving alternative from origin to destination. Leg
// steps are flattened into one step list per route.
func (c *Client) Routes(ctx context.Context, origin, destination string) (Result, error) {
	if c.apiKey == "" {
		return Result{}, ErrNotConfigured
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("origin", origin)
		values.Set("destination", destination)
		values.Set("mode", "driving")
		values.Set("alternatives", "true")
		values.Set("key", c.apiKey)

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := common.DoRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("directions: decode: %w", err)
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return Result{}, fmt.Errorf("%w: %s", ErrNoRoutes, payload.Status)
	default:
		if payload.ErrorMessage != "" {
			return Result{}, fmt.Errorf("directions api error: %s: %s", payload.Status, payload.ErrorMessage)
		}
		return Result{}, fmt.Errorf("directions api error: %s", payload.Status)
	}
	if len(payload.Routes) == 0 || len(payload.Routes[0].Legs) == 0 {
		return Result{}, ErrNoRoutes
	}

	legs := payload.Routes[0].Legs
	out := Result{
		OriginAddress:      legs[0].StartAddress,
		DestinationAddress: legs[len(legs)-1].EndAddress,
		Routes:             make([]route.Route, 0, len(payload.Routes)),
	}

	for i, r := range payload.Routes {
		converted, err := r.toRoute()
		if err != nil {
			return Result{}, fmt.Errorf("directions: route %d: %w", i, err)
		}
		out.Routes = append(out.Routes, converted)
	}
	return out, nil
}

type response struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Routes       []apiRoute `json:"routes"`
}

type apiRoute struct {
	Summary          string `json:"summary"`
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
	Legs []struct {
		StartAddress string    `json:"start_address"`
		EndAddress   string    `json:"end_address"`
		Steps        []apiStep `json:"steps"`
	} `json:"legs"`
}

type apiStep struct {
	Distance struct {
		Value float64 `json:"value"`
	} `json:"distance"`
	Duration struct {
		Value float64 `json:"value"`
	} `json:"duration"`
	StartLocation latLng `json:"start_location"`
	EndLocation   latLng `json:"end_location"`
	Polyline      struct {
		Points string `json:"points"`
	} `json:"polyline"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (r apiRoute) toRoute() (route.Route, error) {
	out := route.Route{
		Summary:          r.Summary,
		OverviewPolyline: r.OverviewPolyline.Points,
	}
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			pts, err := route.DecodePolyline(s.Polyline.Points)
			if err != nil {
				return route.Route{}, err
			}
			// A step polyline always spans its start and end locations.
			if len(pts) < 2 {
				pts = []geo.Point{
					{Lat: s.StartLocation.Lat, Lng: s.StartLocation.Lng},
					{Lat: s.EndLocation.Lat, Lng: s.EndLocation.Lng},
				}
			}
			out.Steps = append(out.Steps, route.Step{
				Points:          pts,
				DistanceMeters:  s.Distance.Value,
				DurationSeconds: s.Duration.Value,
			})
		}
	}
	return out, nil
}
