package track

import (
	"math"

	"github.com/iceXai/ccip-xo-id/internal/geo"
)

// Filter selects the points eligible for matching. Archive loaders
// apply it while reading, so tracks never hold out-of-region or
// non-ocean measurements.
type Filter struct {
	// AOI restricts points to the study region.
	AOI geo.AOI
	// MinCoastDistM drops points closer to the coast than this many
	// meters. Zero disables the check. Points whose archive carries no
	// coast distance (NaN) always pass; the field is advisory where
	// present, absent in older products.
	MinCoastDistM float64
}

// Keep reports whether a point survives the filter.
func (f Filter) Keep(p Point) bool {
	if p.SurfaceFlag != SurfaceOcean {
		return false
	}
	if !f.AOI.Contains(p.Lat, p.Lon) {
		return false
	}
	if f.MinCoastDistM > 0 && !math.IsNaN(p.DistCoastM) && p.DistCoastM < f.MinCoastDistM {
		return false
	}
	return true
}
