package geo

import "math"

// PolarProjection is a spherical Lambert azimuthal equal-area
// projection centered on the north or south pole, the same family the
// EASE2 polar grids use. The spatial index buckets points in this
// plane.
//
// The projection is not used for distance decisions. Radial scale at
// colatitude c is cos(c/2) and transverse scale 1/cos(c/2), so within
// the polar study regions (colatitude ≤ 35°) planar distances deviate
// from great-circle distances by under five percent. Index cells are
// padded accordingly and the authoritative buffer test is Haversine.
type PolarProjection struct {
	north bool
}

// NewPolarProjection returns the projection centered on the pole the
// region sits on.
func NewPolarProjection(aoi AOI) PolarProjection {
	return PolarProjection{north: aoi.Northern()}
}

// Forward maps decimal degrees to planar meters. The center pole maps
// to the origin; the 0° meridian lies on the positive y axis for the
// south pole and the negative y axis for the north pole.
func (p PolarProjection) Forward(lat, lon float64) (x, y float64) {
	lambda := normalizeLon(lon) * math.Pi / 180
	var rho float64
	if p.north {
		// colatitude from the north pole
		rho = 2 * EarthRadiusM * math.Sin((90-lat)*math.Pi/360)
		return rho * math.Sin(lambda), -rho * math.Cos(lambda)
	}
	rho = 2 * EarthRadiusM * math.Sin((90+lat)*math.Pi/360)
	return rho * math.Sin(lambda), rho * math.Cos(lambda)
}

// Inverse maps planar meters back to decimal degrees. Inverse(Forward)
// is identity up to floating-point error for points away from the
// opposite pole.
func (p PolarProjection) Inverse(x, y float64) (lat, lon float64) {
	rho := math.Hypot(x, y)
	c := 2 * math.Asin(math.Min(1, rho/(2*EarthRadiusM)))
	if p.north {
		lat = 90 - c*180/math.Pi
		if rho == 0 {
			return lat, 0
		}
		lon = math.Atan2(x, -y) * 180 / math.Pi
		return lat, lon
	}
	lat = c*180/math.Pi - 90
	if rho == 0 {
		return lat, 0
	}
	lon = math.Atan2(x, y) * 180 / math.Pi
	return lat, lon
}
