package geo

import "fmt"

// AOI identifies one of the two polar study regions. The zero value is
// not valid; use ParseAOI on config input.
type AOI string

const (
	// AOIArctic covers the western Arctic Ocean above 65°N between
	// 180°W and 85°W, plus the eastern Arctic above 70°N between
	// 70°E and 180°E.
	AOIArctic AOI = "arc"
	// AOIAntarctic covers the Southern Ocean below 55°S at all
	// longitudes.
	AOIAntarctic AOI = "ant"
)

// ParseAOI validates a region code from configuration.
func ParseAOI(s string) (AOI, error) {
	switch AOI(s) {
	case AOIArctic, AOIAntarctic:
		return AOI(s), nil
	}
	return "", fmt.Errorf("unknown area of interest %q (want %q or %q)", s, AOIArctic, AOIAntarctic)
}

// normalizeLon maps a longitude in degrees into [-180, 180). Archives
// occasionally carry 0..360 longitudes; predicates and projections work
// in the signed convention.
func normalizeLon(lon float64) float64 {
	for lon >= 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

// Contains reports whether a point lies inside the region. Bounds are
// inclusive on both latitude and longitude.
func (a AOI) Contains(lat, lon float64) bool {
	switch a {
	case AOIArctic:
		lon = normalizeLon(lon)
		if lat >= 65 && lon >= -180 && lon <= -85 {
			return true
		}
		return lat >= 70 && lon >= 70 && lon <= 180
	case AOIAntarctic:
		return lat <= -55
	}
	return false
}

// Northern reports whether the region sits on the northern hemisphere,
// which selects the pole the equal-area projection is centered on.
func (a AOI) Northern() bool {
	return a != AOIAntarctic
}
