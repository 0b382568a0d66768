package route

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/i474232898/route-weather/internal/geo"
)

// CadenceMinutes is the fixed interval between sampled waypoints.
const CadenceMinutes = 15

const cadenceSeconds = CadenceMinutes * 60

var (
	ErrNoSteps      = errors.New("route has no steps")
	ErrInvalidStep  = errors.New("invalid route step")
	ErrZeroDuration = errors.New("route has zero total duration")
)

// Validate checks that steps describe a well-formed route.
func Validate(steps []Step) error {
	if len(steps) == 0 {
		return ErrNoSteps
	}

	var total float64
	for i, s := range steps {
		if len(s.Points) < 2 {
			return fmt.Errorf("%w: step %d has %d points, need at least 2", ErrInvalidStep, i, len(s.Points))
		}
		if !finiteNonNegative(s.DurationSeconds) {
			return fmt.Errorf("%w: step %d duration %v", ErrInvalidStep, i, s.DurationSeconds)
		}
		if !finiteNonNegative(s.DistanceMeters) {
			return fmt.Errorf("%w: step %d distance %v", ErrInvalidStep, i, s.DistanceMeters)
		}
		for j, p := range s.Points {
			if !p.Valid() {
				return fmt.Errorf("%w: step %d point %d out of range", ErrInvalidStep, i, j)
			}
		}
		total += s.DurationSeconds
	}

	if total <= 0 {
		return ErrZeroDuration
	}
	return nil
}

// Sample produces one waypoint every CadenceMinutes of elapsed route time,
// starting at the origin, plus a final waypoint at the destination when the
// total duration is not cadence-aligned.
func Sample(steps []Step, start time.Time) ([]Waypoint, error) {
	if err := Validate(steps); err != nil {
		return nil, err
	}

	// cum[i] is the elapsed time at the start of step i; cum[len] is the total.
	cum := make([]float64, len(steps)+1)
	for i, s := range steps {
		cum[i+1] = cum[i] + s.DurationSeconds
	}
	total := cum[len(steps)]

	waypoints := make([]Waypoint, 0, int(total/cadenceSeconds)+2)
	for k := 0; ; k++ {
		target := float64(k * cadenceSeconds)
		if target > total {
			break
		}
		waypoints = append(waypoints, newWaypoint(locate(steps, cum, target), target, start))
	}

	if last := waypoints[len(waypoints)-1]; last.MinutesFromStart != total/60 {
		final := steps[len(steps)-1].Points
		waypoints = append(waypoints, newWaypoint(final[len(final)-1], total, start))
	}

	return waypoints, nil
}

func newWaypoint(loc geo.Point, offsetSeconds float64, start time.Time) Waypoint {
	return Waypoint{
		Location:         loc,
		MinutesFromStart: offsetSeconds / 60,
		EstimatedTime:    start.Add(time.Duration(offsetSeconds * float64(time.Second))),
	}
}

// locate returns the position reached after target seconds of travel.
func locate(steps []Step, cum []float64, target float64) geo.Point {
	i := stepAt(cum, target)
	step := steps[i]

	frac := 1.0
	if step.DurationSeconds > 0 {
		frac = (target - cum[i]) / step.DurationSeconds
	}
	return pointAlong(step, frac)
}

// stepAt finds i with cum[i] <= target < cum[i+1]. A target at or past the
// total selects the last step. Zero-duration steps are never selected for an
// interior target.
func stepAt(cum []float64, target float64) int {
	last := len(cum) - 2
	for i := 0; i < last; i++ {
		if cum[i] <= target && target < cum[i+1] {
			return i
		}
	}
	return last
}

// pointAlong walks the step polyline until the travelled share of the step's
// reported distance reaches frac, interpolating within the final segment.
func pointAlong(step Step, frac float64) geo.Point {
	pts := step.Points
	switch {
	case frac >= 1:
		return pts[len(pts)-1]
	case frac <= 0 || step.DistanceMeters <= 0:
		return pts[0]
	}

	want := frac * step.DistanceMeters
	var run float64
	for j := 0; j < len(pts)-1; j++ {
		seg := geo.HaversineMeters(pts[j], pts[j+1])
		if seg > 0 && run+seg >= want {
			return geo.Interpolate(pts[j], pts[j+1], (want-run)/seg)
		}
		run += seg
	}

	// The polyline is shorter than the reported distance.
	return pts[len(pts)-1]
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
