package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"

	"github.com/iceXai/ccip-xo-id/internal/monitoring"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

// L1PStore loads ground tracks from L1p geolocation archives.
type L1PStore struct {
	root     string
	versions map[string]string
	filter   track.Filter
	logf     func(format string, v ...interface{})
}

// NewL1PStore returns a store over the given archive root. versions
// maps mission id to the product version directory to read; filter is
// applied to every point while loading.
func NewL1PStore(root string, versions map[string]string, filter track.Filter) *L1PStore {
	return &L1PStore{
		root:     root,
		versions: versions,
		filter:   filter,
		logf:     monitoring.Prefixed("l1p"),
	}
}

// Path returns the archive file for one mission and period.
func (s *L1PStore) Path(mission string, period track.Period) (string, error) {
	version, ok := s.versions[mission]
	if !ok {
		return "", fmt.Errorf("no l1p version configured for mission %q", mission)
	}
	name := fmt.Sprintf("l1p_%s_%s.db", mission, period.Code())
	return filepath.Join(s.root, mission, version, name), nil
}

// LoadStats describes what one LoadTrack call read and kept.
type LoadStats struct {
	OrbitsRead    int
	OrbitsKept    int
	CorruptOrbits int
	PointsRead    int
	PointsKept    int
}

// LoadTrack reads every orbit of one mission and period, applies the
// point filter, and drops orbits whose raw timestamps are not strictly
// increasing (counted as corrupt, never fatal). A missing archive file
// wraps ErrUnavailable.
func (s *L1PStore) LoadTrack(ctx context.Context, mission string, period track.Period) (*track.Track, LoadStats, error) {
	var stats LoadStats

	path, err := s.Path(mission, period)
	if err != nil {
		return nil, stats, err
	}
	db, err := openArchive("l1p", mission, period, path)
	if err != nil {
		return nil, stats, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT o.orbit_id, p.idx, p.time_unix, p.lat, p.lon, p.surface_flag, p.dist_coast_m
		FROM orbits o
		JOIN points p ON p.orbit_id = o.orbit_id
		ORDER BY o.start_unix, o.orbit_id, p.idx`)
	if err != nil {
		return nil, stats, fmt.Errorf("query points in %s: %w", path, err)
	}
	defer rows.Close()

	tr := &track.Track{Mission: mission, Period: period}

	var (
		cur      *track.Orbit
		lastUnix float64
		corrupt  bool
	)
	flush := func() {
		if cur == nil {
			return
		}
		switch {
		case corrupt:
			stats.CorruptOrbits++
			s.logf("dropping orbit %s of %s %s: timestamps not strictly increasing", cur.ID, mission, period)
		case len(cur.Points) > 0:
			tr.Orbits = append(tr.Orbits, *cur)
			stats.OrbitsKept++
		}
		cur = nil
	}

	for rows.Next() {
		var (
			orbitID     string
			idx         int
			timeUnix    float64
			lat, lon    float64
			surfaceFlag int
			distCoast   sql.NullFloat64
		)
		if err := rows.Scan(&orbitID, &idx, &timeUnix, &lat, &lon, &surfaceFlag, &distCoast); err != nil {
			return nil, stats, fmt.Errorf("scan point in %s: %w", path, err)
		}

		if cur == nil || cur.ID != orbitID {
			flush()
			cur = &track.Orbit{ID: orbitID}
			corrupt = false
			lastUnix = math.Inf(-1)
			stats.OrbitsRead++
		}
		stats.PointsRead++

		// Monotonicity is checked on the raw sequence, before
		// filtering, so a corrupt orbit is dropped even when the bad
		// rows would have been filtered out anyway.
		if timeUnix <= lastUnix {
			corrupt = true
		}
		lastUnix = timeUnix
		if corrupt {
			continue
		}

		p := track.Point{
			Index:       idx,
			Time:        secondsToTime(timeUnix),
			Lat:         lat,
			Lon:         lon,
			SurfaceFlag: surfaceFlag,
			DistCoastM:  math.NaN(),
		}
		if distCoast.Valid {
			p.DistCoastM = distCoast.Float64
		}
		if s.filter.Keep(p) {
			cur.Points = append(cur.Points, p)
			stats.PointsKept++
		}
	}
	flush()
	if err := rows.Err(); err != nil {
		return nil, stats, fmt.Errorf("read points in %s: %w", path, err)
	}

	s.logf("%s %s: %d/%d orbits kept, %d/%d points kept (%d corrupt orbits)",
		mission, period, stats.OrbitsKept, stats.OrbitsRead, stats.PointsKept, stats.PointsRead, stats.CorruptOrbits)
	return tr, stats, nil
}
