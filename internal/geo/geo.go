// Package geo owns the spherical geometry used by the coincidence finder:
// great-circle distances, area-of-interest predicates, the polar
// equal-area projection backing the spatial index, and exact
// great-circle segment intersection for crossover detection.
//
// All distances are meters on a sphere of radius EarthRadiusM. The same
// radius is used everywhere so buffer comparisons are reproducible.
package geo

import "math"

// EarthRadiusM is the IUGG mean Earth radius in meters. Every
// great-circle distance in this package is computed on this sphere.
const EarthRadiusM = 6371008.8

// Haversine returns the great-circle distance in meters between two
// points given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * EarthRadiusM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Vec3 is a position on the unit sphere in Earth-centered coordinates.
// The z axis points at the north pole, the x axis at (0°N, 0°E).
type Vec3 struct {
	X, Y, Z float64
}

// UnitVector converts decimal degrees to a unit vector.
func UnitVector(lat, lon float64) Vec3 {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	cosPhi := math.Cos(phi)
	return Vec3{
		X: cosPhi * math.Cos(lambda),
		Y: cosPhi * math.Sin(lambda),
		Z: math.Sin(phi),
	}
}

// LatLon converts a vector back to decimal degrees. The vector does not
// need to be normalized.
func (v Vec3) LatLon() (lat, lon float64) {
	lat = math.Atan2(v.Z, math.Hypot(v.X, v.Y)) * 180 / math.Pi
	lon = math.Atan2(v.Y, v.X) * 180 / math.Pi
	return lat, lon
}

// Cross returns the cross product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Dot returns the dot product v · w.
func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length. The zero vector is
// returned unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return Vec3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// Neg returns -v.
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// AngleBetween returns the central angle in radians between two unit
// vectors. Atan2 on cross/dot keeps small angles numerically stable
// where Acos loses precision.
func AngleBetween(v, w Vec3) float64 {
	return math.Atan2(v.Cross(w).Norm(), v.Dot(w))
}
