package geo

import "math"

// segmentEps bounds how small a cross product may get before two unit
// vectors are treated as the same (or antipodal) point. 1e-9 rad is
// about 6 mm of arc on the Earth sphere, far below sensor footprint.
const segmentEps = 1e-9

// DegenerateSegment reports whether the arc between two unit vectors
// has no usable direction, i.e. the endpoints coincide or are
// antipodal. Such segments cannot define a great circle.
func DegenerateSegment(p, q Vec3) bool {
	return p.Cross(q).Norm() < segmentEps
}

// onMinorArc reports whether unit vector x, already known to lie on the
// great circle with normal n = p×q, falls on the minor arc from p to q.
// Both boundary tests allow a small negative slack so intersections at
// segment endpoints are kept.
func onMinorArc(p, q, n, x Vec3) bool {
	return p.Cross(x).Dot(n) >= -segmentEps && x.Cross(q).Dot(n) >= -segmentEps
}

// SegmentIntersections returns the points where the minor arc a1->a2
// crosses the minor arc b1->b2. The usual outcome is zero or one point;
// two points can only occur for arcs long enough to contain both
// antipodal crossings of their great circles, which orbital segments
// never are, but callers are expected to break such ties themselves.
// Degenerate segments yield no intersections; detect them first with
// DegenerateSegment.
func SegmentIntersections(a1, a2, b1, b2 Vec3) []Vec3 {
	n1 := a1.Cross(a2)
	n2 := b1.Cross(b2)
	if n1.Norm() < segmentEps || n2.Norm() < segmentEps {
		return nil
	}

	// The two great circles meet where both plane normals are
	// orthogonal to the position vector: along ±(n1×n2).
	line := n1.Cross(n2)
	if line.Norm() < segmentEps {
		// Coplanar circles: the arcs either miss or overlap along a
		// shared circle. There is no isolated crossing either way.
		return nil
	}
	line = line.Normalize()

	var out []Vec3
	for _, x := range [2]Vec3{line, line.Neg()} {
		if onMinorArc(a1, a2, n1, x) && onMinorArc(b1, b2, n2, x) {
			out = append(out, x)
		}
	}
	return out
}

// FractionAlong returns how far x sits along the arc p->q as a value in
// [0, 1], measured by central angle and clamped at the endpoints. The
// segment must not be degenerate. Used to interpolate measurement time
// at a crossover.
func FractionAlong(p, q, x Vec3) float64 {
	n := p.Cross(q)
	if n.Norm() < segmentEps {
		return 0
	}
	// Signed angle of x within the great-circle plane, measured from p
	// toward q, so points slightly behind p clamp to 0 rather than
	// aliasing onto the arc.
	u := p.Normalize()
	w := n.Normalize().Cross(u)
	theta := math.Atan2(x.Dot(w), x.Dot(u))
	f := theta / AngleBetween(p, q)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
