// Package index provides the proximity structure behind candidate
// search: a regular planar grid over reference-track points projected
// into the polar equal-area plane. Queries return every reference
// point within a great-circle buffer of a query location, never missing
// one, at cost proportional to local point density rather than track
// length.
package index

import (
	"math"

	"github.com/iceXai/ccip-xo-id/internal/geo"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

const (
	// cellPadding sizes grid cells relative to the query buffer. The
	// projection stretches or shrinks distances by less than 5% inside
	// the study regions, so padding by 10% keeps every true neighbor
	// inside the 3x3 cell neighborhood of the query point.
	cellPadding = 1.1
	// estimatedPointsPerCell seeds the cell map capacity.
	estimatedPointsPerCell = 4
)

// PointID addresses a point inside the indexed track.
type PointID struct {
	Orbit int
	Point int
}

// Neighbor is one query result: a reference point and its exact
// great-circle distance to the query location.
type Neighbor struct {
	ID        PointID
	DistanceM float64
}

type gridPoint struct {
	x, y     float64
	lat, lon float64
	id       PointID
}

// Grid is the spatial index. Build once per period over the reference
// track; queries are read-only and safe for concurrent use.
type Grid struct {
	proj     geo.PolarProjection
	bufferM  float64
	cellSize float64
	points   []gridPoint
	cells    map[int64][]int32
}

// Build indexes every point of the reference track for proximity
// queries with the given buffer radius in meters.
func Build(tr *track.Track, proj geo.PolarProjection, bufferM float64) *Grid {
	g := &Grid{
		proj:     proj,
		bufferM:  bufferM,
		cellSize: bufferM * cellPadding,
	}
	n := tr.PointCount()
	g.points = make([]gridPoint, 0, n)
	g.cells = make(map[int64][]int32, n/estimatedPointsPerCell+1)

	for oi := range tr.Orbits {
		for pi, p := range tr.Orbits[oi].Points {
			x, y := proj.Forward(p.Lat, p.Lon)
			g.points = append(g.points, gridPoint{
				x: x, y: y,
				lat: p.Lat, lon: p.Lon,
				id: PointID{Orbit: oi, Point: pi},
			})
			idx := int32(len(g.points) - 1)
			cid := cellID(g.cellCoord(x), g.cellCoord(y))
			g.cells[cid] = append(g.cells[cid], idx)
		}
	}
	return g
}

// Len returns the number of indexed points.
func (g *Grid) Len() int { return len(g.points) }

// Buffer returns the query radius the grid was built for.
func (g *Grid) Buffer() float64 { return g.bufferM }

func (g *Grid) cellCoord(v float64) int64 {
	return int64(math.Floor(v / g.cellSize))
}

// cellID pairs signed cell coordinates into one map key: zigzag
// encoding onto non-negative integers, then Szudzik pairing.
func cellID(cx, cy int64) int64 {
	var a, b int64
	if cx >= 0 {
		a = 2 * cx
	} else {
		a = -2*cx - 1
	}
	if cy >= 0 {
		b = 2 * cy
	} else {
		b = -2*cy - 1
	}
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// Query returns all indexed points within the buffer radius of the
// given location, inclusive of the boundary. The planar grid and a
// padded planar prefilter narrow the candidates; the final decision is
// the exact great-circle distance.
func (g *Grid) Query(lat, lon float64) []Neighbor {
	if len(g.points) == 0 {
		return nil
	}
	qx, qy := g.proj.Forward(lat, lon)
	baseX := g.cellCoord(qx)
	baseY := g.cellCoord(qy)

	// Planar prefilter bound: an in-buffer point can appear up to
	// cellPadding times the buffer away in the plane.
	prefilter2 := g.cellSize * g.cellSize

	var out []Neighbor
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, idx := range g.cells[cellID(baseX+dx, baseY+dy)] {
				p := &g.points[idx]
				ddx := p.x - qx
				ddy := p.y - qy
				if ddx*ddx+ddy*ddy > prefilter2 {
					continue
				}
				d := geo.Haversine(lat, lon, p.lat, p.lon)
				if d <= g.bufferM {
					out = append(out, Neighbor{ID: p.id, DistanceM: d})
				}
			}
		}
	}
	return out
}
