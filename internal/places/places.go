package places

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kelvins/geocoder"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/route-weather/internal/geo"
)

const (
	// Unknown names a point whose lookup failed.
	Unknown = "unknown location"

	maxConcurrentLookups = 5
)

var errNoAddress = errors.New("no address for location")

// Namer turns a coordinate into a short human-readable place name.
type Namer interface {
	PlaceName(ctx context.Context, p geo.Point) (string, error)
}

// GeocoderNamer reverse geocodes through the Google Geocoding API.
type GeocoderNamer struct {
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGeocoderNamer configures the geocoder package with apiKey.
func NewGeocoderNamer(apiKey string) *GeocoderNamer {
	geocoder.ApiKey = apiKey
	return &GeocoderNamer{reverse: geocoder.GeocodingReverse}
}

// PlaceName returns "Town, State", falling back to whichever part is known and
// then to the formatted address.
func (n *GeocoderNamer) PlaceName(ctx context.Context, p geo.Point) (string, error) {
	type result struct {
		addrs []geocoder.Address
		err   error
	}

	// The geocoder package has no context support.
	done := make(chan result, 1)
	go func() {
		addrs, err := n.reverse(geocoder.Location{Latitude: p.Lat, Longitude: p.Lng})
		done <- result{addrs, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return "", fmt.Errorf("reverse geocode: %w", res.err)
	}
	if len(res.addrs) == 0 {
		return "", errNoAddress
	}
	return format(res.addrs[0])
}

func format(a geocoder.Address) (string, error) {
	town := strings.TrimSpace(a.City)
	if town == "" {
		town = strings.TrimSpace(a.County)
	}
	state := strings.TrimSpace(a.State)

	switch {
	case town != "" && state != "":
		return town + ", " + state, nil
	case town != "":
		return town, nil
	case state != "":
		return state, nil
	case a.FormattedAddress != "":
		return a.FormattedAddress, nil
	default:
		return "", errNoAddress
	}
}

// Key identifies a point at roughly 1.1 km resolution.
type Key struct {
	Lat, Lng float64
}

// KeyOf rounds p to two decimal places.
func KeyOf(p geo.Point) Key {
	return Key{Lat: geo.Round2(p.Lat), Lng: geo.Round2(p.Lng)}
}

// Resolve names every distinct point once. Points within the same Key share a
// lookup, and a failed lookup yields Unknown without affecting the others.
func Resolve(ctx context.Context, namer Namer, points []geo.Point) map[Key]string {
	unique := make(map[Key]geo.Point)
	var order []Key
	for _, p := range points {
		k := KeyOf(p)
		if _, ok := unique[k]; !ok {
			unique[k] = p
			order = append(order, k)
		}
	}

	names := make([]string, len(order))

	var g errgroup.Group
	g.SetLimit(maxConcurrentLookups)
	for i, k := range order {
		i, k := i, k
		g.Go(func() error {
			name, err := namer.PlaceName(ctx, unique[k])
			if err != nil {
				log.Printf("places: lookup failed for %.2f,%.2f: %v", k.Lat, k.Lng, err)
				name = Unknown
			}
			names[i] = name
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[Key]string, len(order))
	for i, k := range order {
		out[k] = names[i]
	}
	return out
}
