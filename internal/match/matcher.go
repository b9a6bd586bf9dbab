package match

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iceXai/ccip-xo-id/internal/geo"
	"github.com/iceXai/ccip-xo-id/internal/index"
	"github.com/iceXai/ccip-xo-id/internal/monitoring"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

// mergeRadiusM collapses crossover candidates of the same orbit pair
// that fall within this distance of each other. Adjacent segment pairs
// around a shared vertex report the same physical crossing; the
// candidate with the smallest |dt| survives.
const mergeRadiusM = 10.0

// Matcher runs the coincidence search for one run configuration. Safe
// for concurrent use across periods: all per-period state lives in Run.
type Matcher struct {
	params Params
	aoi    geo.AOI
	logf   func(format string, v ...interface{})
}

// New returns a matcher for the given parameters and study region.
func New(p Params, aoi geo.AOI) *Matcher {
	return &Matcher{
		params: p,
		aoi:    aoi,
		logf:   monitoring.Prefixed("match"),
	}
}

// Run matches the two tracks of one period and returns the records
// sorted by reference time, then match time. The context aborts the
// search between orbit units; a cancelled run returns no partial
// result.
func (m *Matcher) Run(ctx context.Context, ref, match *track.Track) (*Result, error) {
	proj := geo.NewPolarProjection(m.aoi)
	grid := index.Build(ref, proj, m.params.BufferM)

	res := &Result{}
	res.Stats.RefPoints = grid.Len()
	res.Stats.MatchPoints = match.PointCount()

	var err error
	switch m.params.Mode {
	case ModeOTM:
		err = m.runOTM(ctx, grid, ref, match, res)
	default:
		err = m.runXO(ctx, grid, ref, match, res)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(res.Records, func(i, j int) bool {
		a, b := &res.Records[i], &res.Records[j]
		if !a.RefTime.Equal(b.RefTime) {
			return a.RefTime.Before(b.RefTime)
		}
		if !a.MatchTime.Equal(b.MatchTime) {
			return a.MatchTime.Before(b.MatchTime)
		}
		if a.Ref.OrbitID != b.Ref.OrbitID {
			return a.Ref.OrbitID < b.Ref.OrbitID
		}
		return a.Match.OrbitID < b.Match.OrbitID
	})
	for i := range res.Records {
		res.Records[i].ID = uuid.New().String()
	}

	m.logf("%s vs %s %s: %d records, %d candidate pairs, %d orbit pairs tested, %d skipped by prescreen, %d warnings",
		ref.Mission, match.Mission, ref.Period, len(res.Records), res.Stats.CandidatePairs,
		res.Stats.OrbitPairsTested, res.Stats.OrbitPairsSkipped, res.Stats.Warnings())
	return res, nil
}

// compatibleOrbits returns, for one match orbit, which reference orbits
// can hold candidates. The mean-time prescreen is made conservative by
// both half spans: a point pair within MaxDt implies the orbit means
// differ by at most MaxDt plus the two half spans, so nothing the
// point-level filter would keep is lost.
func (m *Matcher) compatibleOrbits(ref *track.Track, mo *track.Orbit) ([]bool, int) {
	compat := make([]bool, len(ref.Orbits))
	n := 0
	moMean := mo.MeanTime()
	moHalf := mo.HalfSpan()
	for i := range ref.Orbits {
		ro := &ref.Orbits[i]
		if len(ro.Points) == 0 {
			continue
		}
		limit := m.params.MaxDt + ro.HalfSpan() + moHalf
		diff := ro.MeanTime().Sub(moMean)
		if diff < 0 {
			diff = -diff
		}
		if diff <= limit {
			compat[i] = true
			n++
		}
	}
	return compat, n
}

// withinDt applies the inclusive temporal window.
func (m *Matcher) withinDt(a, b time.Time) (time.Duration, bool) {
	dt := a.Sub(b)
	if dt < 0 {
		dt = -dt
	}
	return dt, dt <= m.params.MaxDt
}

// runOTM emits one record per match-carrier point that has at least one
// reference point inside both the buffer and the temporal window. Among
// the eligible reference points the closest wins; ties fall to the
// smaller |dt|, then to stable track order.
func (m *Matcher) runOTM(ctx context.Context, grid *index.Grid, ref, match *track.Track, res *Result) error {
	for moIdx := range match.Orbits {
		if err := ctx.Err(); err != nil {
			return err
		}
		mo := &match.Orbits[moIdx]
		if len(mo.Points) == 0 {
			continue
		}
		compat, nCompat := m.compatibleOrbits(ref, mo)
		res.Stats.OrbitPairsTested += nCompat
		res.Stats.OrbitPairsSkipped += len(ref.Orbits) - nCompat
		if nCompat == 0 {
			continue
		}

		for _, mp := range mo.Points {
			var (
				best    index.Neighbor
				bestDt  time.Duration
				bestRef track.Point
				found   bool
			)
			for _, nb := range grid.Query(mp.Lat, mp.Lon) {
				if !compat[nb.ID.Orbit] {
					continue
				}
				rp := ref.Orbits[nb.ID.Orbit].Points[nb.ID.Point]
				dt, ok := m.withinDt(rp.Time, mp.Time)
				if !ok {
					continue
				}
				res.Stats.CandidatePairs++
				if !found || otmBetter(nb, dt, best, bestDt) {
					best, bestDt, bestRef, found = nb, dt, rp, true
				}
			}
			if !found {
				continue
			}
			refOrbit := &ref.Orbits[best.ID.Orbit]
			res.Records = append(res.Records, Record{
				Mode:      ModeOTM,
				Lat:       mp.Lat,
				Lon:       mp.Lon,
				RefTime:   bestRef.Time,
				MatchTime: mp.Time,
				DtHours:   bestDt.Hours(),
				DistanceM: best.DistanceM,
				Ref: Support{
					OrbitID:   refOrbit.ID,
					FirstIdx:  bestRef.Index,
					LastIdx:   bestRef.Index,
					SampleIdx: bestRef.Index,
				},
				Match: Support{
					OrbitID:   mo.ID,
					FirstIdx:  mp.Index,
					LastIdx:   mp.Index,
					SampleIdx: mp.Index,
				},
			})
		}
	}
	return nil
}

// otmBetter reports whether candidate a beats the current best b.
func otmBetter(a index.Neighbor, aDt time.Duration, b index.Neighbor, bDt time.Duration) bool {
	if a.DistanceM != b.DistanceM {
		return a.DistanceM < b.DistanceM
	}
	if aDt != bDt {
		return aDt < bDt
	}
	if a.ID.Orbit != b.ID.Orbit {
		return a.ID.Orbit < b.ID.Orbit
	}
	return a.ID.Point < b.ID.Point
}

// orbitPair keys candidate grouping for crossover detection.
type orbitPair struct {
	ref, match int
}

// segPair is a pair of segment start indices (ref, match) within their
// orbits.
type segPair struct {
	rs, ms int
}

// xoCandidate is one segment-pair intersection before merging.
type xoCandidate struct {
	vec      geo.Vec3
	lat, lon float64
	refTime  time.Time
	mTime    time.Time
	absDt    time.Duration
	rs, ms   int
	fRef     float64
	fMatch   float64
}

// runXO finds true crossovers. Candidate point pairs from the spatial
// query propose the segment pairs around them; each unique segment pair
// is intersected exactly on the sphere, the crossing times are
// interpolated in arc length, and the inclusive temporal window is
// applied to the interpolated times. Per orbit pair, near-coincident
// candidates merge keeping the smallest |dt|.
func (m *Matcher) runXO(ctx context.Context, grid *index.Grid, ref, match *track.Track, res *Result) error {
	countShortOrbits(ref, match, &res.Stats)

	// Phase 1: collect candidate point pairs grouped by orbit pair, in
	// deterministic track order.
	pairs := make(map[orbitPair][]segPair)
	pairSeen := make(map[orbitPair]map[segPair]bool)
	var pairOrder []orbitPair

	for moIdx := range match.Orbits {
		if err := ctx.Err(); err != nil {
			return err
		}
		mo := &match.Orbits[moIdx]
		if len(mo.Points) < 2 {
			continue
		}
		compat, nCompat := m.compatibleOrbits(ref, mo)
		res.Stats.OrbitPairsSkipped += len(ref.Orbits) - nCompat
		if nCompat == 0 {
			continue
		}

		for mi, mp := range mo.Points {
			for _, nb := range grid.Query(mp.Lat, mp.Lon) {
				if !compat[nb.ID.Orbit] {
					continue
				}
				if len(ref.Orbits[nb.ID.Orbit].Points) < 2 {
					continue
				}
				res.Stats.CandidatePairs++
				key := orbitPair{ref: nb.ID.Orbit, match: moIdx}
				seen, ok := pairSeen[key]
				if !ok {
					seen = make(map[segPair]bool)
					pairSeen[key] = seen
					pairOrder = append(pairOrder, key)
				}
				appendSegPairs(seen, pairs, key, nb.ID.Point, mi,
					len(ref.Orbits[nb.ID.Orbit].Points), len(mo.Points))
			}
		}
	}
	res.Stats.OrbitPairsTested += len(pairOrder)

	// Phase 2: intersect each orbit pair's unique segment pairs.
	refVecs := newVecCache(ref)
	matchVecs := newVecCache(match)
	degenerate := make(map[degenKey]bool)

	for _, key := range pairOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		ro := &ref.Orbits[key.ref]
		mo := &match.Orbits[key.match]
		rv := refVecs.get(key.ref)
		mv := matchVecs.get(key.match)

		var cands []xoCandidate
		for _, sp := range pairs[key] {
			a1, a2 := rv[sp.rs], rv[sp.rs+1]
			b1, b2 := mv[sp.ms], mv[sp.ms+1]

			if geo.DegenerateSegment(a1, a2) {
				m.noteDegenerate(degenerate, degenKey{ref.Mission, key.ref, sp.rs}, ro.ID, ref.Mission, sp.rs, &res.Stats)
				continue
			}
			if geo.DegenerateSegment(b1, b2) {
				m.noteDegenerate(degenerate, degenKey{match.Mission, key.match, sp.ms}, mo.ID, match.Mission, sp.ms, &res.Stats)
				continue
			}

			for _, x := range geo.SegmentIntersections(a1, a2, b1, b2) {
				fRef := geo.FractionAlong(a1, a2, x)
				fMatch := geo.FractionAlong(b1, b2, x)
				tRef := lerpTime(ro.Points[sp.rs].Time, ro.Points[sp.rs+1].Time, fRef)
				tMatch := lerpTime(mo.Points[sp.ms].Time, mo.Points[sp.ms+1].Time, fMatch)
				absDt, ok := m.withinDt(tRef, tMatch)
				if !ok {
					continue
				}
				lat, lon := x.LatLon()
				cands = mergeCandidate(cands, xoCandidate{
					vec: x, lat: lat, lon: lon,
					refTime: tRef, mTime: tMatch, absDt: absDt,
					rs: sp.rs, ms: sp.ms, fRef: fRef, fMatch: fMatch,
				}, &res.Stats)
			}
		}

		for _, c := range cands {
			res.Records = append(res.Records, m.xoRecord(ro, mo, c))
		}
	}
	return nil
}

// appendSegPairs proposes the segment pairs around a candidate point
// pair: segments starting at the point and at its predecessor, on both
// carriers, clipped to orbit bounds and deduplicated.
func appendSegPairs(seen map[segPair]bool, pairs map[orbitPair][]segPair, key orbitPair, ri, mi, nRef, nMatch int) {
	for _, rs := range [2]int{ri - 1, ri} {
		if rs < 0 || rs > nRef-2 {
			continue
		}
		for _, ms := range [2]int{mi - 1, mi} {
			if ms < 0 || ms > nMatch-2 {
				continue
			}
			sp := segPair{rs: rs, ms: ms}
			if seen[sp] {
				continue
			}
			seen[sp] = true
			pairs[key] = append(pairs[key], sp)
		}
	}
}

// mergeCandidate folds a new intersection into the pair-local
// candidate set: within mergeRadiusM of an existing candidate the
// smaller |dt| wins, otherwise the candidate is appended.
func mergeCandidate(cands []xoCandidate, c xoCandidate, stats *Stats) []xoCandidate {
	for i := range cands {
		if geo.Haversine(cands[i].lat, cands[i].lon, c.lat, c.lon) <= mergeRadiusM {
			stats.MergedCandidates++
			if c.absDt < cands[i].absDt {
				cands[i] = c
			}
			return cands
		}
	}
	return append(cands, c)
}

func (m *Matcher) xoRecord(ro, mo *track.Orbit, c xoCandidate) Record {
	return Record{
		Mode:      ModeXO,
		Lat:       c.lat,
		Lon:       c.lon,
		RefTime:   c.refTime,
		MatchTime: c.mTime,
		DtHours:   c.absDt.Hours(),
		DistanceM: math.NaN(),
		Ref:       segmentSupport(ro, c.rs, c.fRef),
		Match:     segmentSupport(mo, c.ms, c.fMatch),
	}
}

// segmentSupport builds the support rows for one side of a crossover:
// the bracketing file rows, sampling the one nearer the crossing.
func segmentSupport(o *track.Orbit, seg int, frac float64) Support {
	first := o.Points[seg].Index
	last := o.Points[seg+1].Index
	sample := first
	if frac > 0.5 {
		sample = last
	}
	return Support{OrbitID: o.ID, FirstIdx: first, LastIdx: last, SampleIdx: sample}
}

// degenKey identifies one segment of one carrier's orbit, so repeated
// encounters across orbit pairs count and log once.
type degenKey struct {
	mission string
	orbit   int
	seg     int
}

func (m *Matcher) noteDegenerate(seen map[degenKey]bool, key degenKey, orbitID, mission string, seg int, stats *Stats) {
	if seen[key] {
		return
	}
	seen[key] = true
	stats.DegenerateSegments++
	m.logf("warning: degenerate segment %d in orbit %s of %s, skipped", seg, orbitID, mission)
}

// countShortOrbits counts orbits that cannot form segments. Their
// points still sit in the spatial index but no crossover can anchor on
// them.
func countShortOrbits(ref, match *track.Track, stats *Stats) {
	for i := range ref.Orbits {
		if n := len(ref.Orbits[i].Points); n > 0 && n < 2 {
			stats.ShortOrbits++
		}
	}
	for i := range match.Orbits {
		if n := len(match.Orbits[i].Points); n > 0 && n < 2 {
			stats.ShortOrbits++
		}
	}
}

// lerpTime interpolates between two timestamps by fraction f in [0,1].
func lerpTime(t1, t2 time.Time, f float64) time.Time {
	return t1.Add(time.Duration(float64(t2.Sub(t1)) * f))
}

// vecCache memoizes per-orbit unit vectors; orbits touched by several
// orbit pairs convert their points once.
type vecCache struct {
	tr   *track.Track
	vecs [][]geo.Vec3
}

func newVecCache(tr *track.Track) *vecCache {
	return &vecCache{tr: tr, vecs: make([][]geo.Vec3, len(tr.Orbits))}
}

func (c *vecCache) get(orbit int) []geo.Vec3 {
	if c.vecs[orbit] == nil {
		pts := c.tr.Orbits[orbit].Points
		v := make([]geo.Vec3, len(pts))
		for i, p := range pts {
			v[i] = geo.UnitVector(p.Lat, p.Lon)
		}
		c.vecs[orbit] = v
	}
	return c.vecs[orbit]
}
