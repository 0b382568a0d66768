package weather

import (
	"fmt"
	"time"

	"github.com/i474232898/route-weather/internal/geo"
)

// BucketKey coalesces waypoints that are close enough in space (~1.1 km at
// the equator) and time (same clock hour) to share one lookup.
type BucketKey struct {
	Lat  float64
	Lng  float64
	Hour time.Time // UTC, truncated to the hour
}

// KeyFor derives the bucket key for a location at a given instant.
func KeyFor(loc geo.Point, at time.Time) BucketKey {
	return BucketKey{
		Lat:  geo.Round2(loc.Lat),
		Lng:  geo.Round2(loc.Lng),
		Hour: at.UTC().Truncate(time.Hour),
	}
}

// Location is the rounded point looked up on behalf of the whole bucket.
func (k BucketKey) Location() geo.Point {
	return geo.Point{Lat: k.Lat, Lng: k.Lng}
}

// String returns a canonical key for external stores.
func (k BucketKey) String() string {
	return fmt.Sprintf("%.2f:%.2f:%s", k.Lat, k.Lng, k.Hour.Format("2006-01-02T15"))
}
