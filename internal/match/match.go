// Package match implements the coincidence search between two mission
// tracks: crossover detection (xo) on exact great-circle segment
// intersections, and orbit-trajectory matching (otm) on
// near-contemporaneous points within a distance buffer. Both modes
// share the spatial grid for candidate discovery and an inclusive
// temporal window.
package match

import (
	"fmt"
	"time"
)

// Mode selects the matching algorithm.
type Mode string

const (
	// ModeXO finds true ground-track crossovers.
	ModeXO Mode = "xo"
	// ModeOTM finds near-coincident along-track points.
	ModeOTM Mode = "otm"
)

// ParseMode validates a mode string from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeXO, ModeOTM:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown matching type %q (want %q or %q)", s, ModeXO, ModeOTM)
}

// Support identifies the source rows behind one side of a match: the
// orbit, the first and last contributing file rows, and the single row
// whose parameter record annotates the match.
type Support struct {
	OrbitID   string
	FirstIdx  int
	LastIdx   int
	SampleIdx int
}

// Record is one confirmed coincidence between the reference and match
// carriers.
type Record struct {
	ID   string
	Mode Mode
	// Lat/Lon locate the match: the interpolated crossing for xo, the
	// match-carrier point for otm.
	Lat float64
	Lon float64
	// RefTime/MatchTime are the per-carrier measurement times at the
	// match location; for xo they are interpolated along the segment.
	RefTime   time.Time
	MatchTime time.Time
	// DtHours is |RefTime - MatchTime| in hours.
	DtHours float64
	// DistanceM is the ref-to-match point distance for otm; NaN for
	// xo, where the crossing itself has no separation.
	DistanceM float64

	Ref   Support
	Match Support

	// RefValues/MatchValues hold the configured geophysical parameters
	// in configuration order, NaN where unavailable. Filled by the
	// parameter extractor after matching.
	RefValues   []float64
	MatchValues []float64
}

// Params configures one matching run.
type Params struct {
	Mode    Mode
	BufferM float64
	MaxDt   time.Duration
}

// Stats counts what the matcher examined and skipped. Degenerate
// counters feed the run's warning total; none of them is fatal.
type Stats struct {
	RefPoints          int
	MatchPoints        int
	OrbitPairsTested   int
	OrbitPairsSkipped  int
	CandidatePairs     int
	DegenerateSegments int
	ShortOrbits        int
	MergedCandidates   int
}

// Warnings returns the number of degraded-input conditions encountered.
func (s Stats) Warnings() int {
	return s.DegenerateSegments + s.ShortOrbits
}

// Result is the outcome of one period's matching.
type Result struct {
	Records []Record
	Stats   Stats
}
