// Package track models satellite ground tracks as loaded from monthly
// sensor archives: time-tagged surface points grouped into orbits,
// grouped into one track per mission and period. The matching engine
// consumes these types; it never touches archive storage directly.
package track

import (
	"fmt"
	"time"
)

// SurfaceOcean is the surface-type flag value marking an open-ocean
// retrieval. Matching only considers ocean points; land and ambiguous
// returns carry other flag values.
const SurfaceOcean = 1

// Period identifies one calendar month of archive data.
type Period struct {
	Year  int
	Month int
}

// Code returns the compact yyyymm form used in archive and output file
// names.
func (p Period) Code() string {
	return fmt.Sprintf("%04d%02d", p.Year, p.Month)
}

// String implements fmt.Stringer.
func (p Period) String() string { return p.Code() }

// Valid reports whether the period denotes a real calendar month.
func (p Period) Valid() bool {
	return p.Year >= 1990 && p.Year <= 2100 && p.Month >= 1 && p.Month <= 12
}

// Point is a single along-track surface measurement.
type Point struct {
	// Index is the measurement's position within its source orbit
	// file. It survives filtering, so output records can reference the
	// original file rows.
	Index int
	Time  time.Time
	Lat   float64
	Lon   float64
	// SurfaceFlag is the archive's surface-type classification.
	SurfaceFlag int
	// DistCoastM is the distance to the nearest coastline in meters,
	// or NaN when the archive does not carry the field.
	DistCoastM float64
}

// Orbit is the time-ordered sequence of points from one pass of a
// mission over the study region.
type Orbit struct {
	ID     string
	Points []Point
}

// StartTime returns the time of the first point. Zero for an empty
// orbit.
func (o *Orbit) StartTime() time.Time {
	if len(o.Points) == 0 {
		return time.Time{}
	}
	return o.Points[0].Time
}

// EndTime returns the time of the last point. Zero for an empty orbit.
func (o *Orbit) EndTime() time.Time {
	if len(o.Points) == 0 {
		return time.Time{}
	}
	return o.Points[len(o.Points)-1].Time
}

// MeanTime returns the midpoint between the first and last
// measurement. The temporal prescreen compares orbit pairs by this
// value before running exact per-point checks.
func (o *Orbit) MeanTime() time.Time {
	if len(o.Points) == 0 {
		return time.Time{}
	}
	return o.StartTime().Add(o.HalfSpan())
}

// HalfSpan returns half the duration covered by the orbit's points.
func (o *Orbit) HalfSpan() time.Duration {
	if len(o.Points) < 2 {
		return 0
	}
	return o.EndTime().Sub(o.StartTime()) / 2
}

// Track is every orbit of one mission within one period, after point
// filtering.
type Track struct {
	Mission string
	Period  Period
	Orbits  []Orbit
}

// PointCount returns the number of points across all orbits.
func (t *Track) PointCount() int {
	n := 0
	for i := range t.Orbits {
		n += len(t.Orbits[i].Points)
	}
	return n
}

// Empty reports whether no orbit retained any point.
func (t *Track) Empty() bool { return t.PointCount() == 0 }
