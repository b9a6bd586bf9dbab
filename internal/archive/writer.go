package archive

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/iceXai/ccip-xo-id/internal/track"
)

// Writer creates archive files. It backs the synthetic archive
// generator and the package test fixtures; production archives come
// from the upstream processing chain in the same layout.
type Writer struct {
	L1PRoot string
	L2IRoot string
}

const l1pSchema = `
CREATE TABLE orbits (
	orbit_id    TEXT PRIMARY KEY,
	start_unix  REAL NOT NULL,
	end_unix    REAL NOT NULL,
	point_count INTEGER NOT NULL
);
CREATE TABLE points (
	orbit_id     TEXT NOT NULL REFERENCES orbits(orbit_id),
	idx          INTEGER NOT NULL,
	time_unix    REAL NOT NULL,
	lat          REAL NOT NULL,
	lon          REAL NOT NULL,
	surface_flag INTEGER NOT NULL,
	dist_coast_m REAL,
	PRIMARY KEY (orbit_id, idx)
);
`

// WriteL1P writes one mission-period geolocation archive, replacing any
// existing file. Orbit start/end times and point counts are derived
// from the given points. Returns the file path.
func (w *Writer) WriteL1P(mission, version string, period track.Period, orbits []track.Orbit) (string, error) {
	store := NewL1PStore(w.L1PRoot, map[string]string{mission: version}, track.Filter{})
	path, err := store.Path(mission, period)
	if err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("replace %s: %w", path, err)
	}

	db, err := createArchive(path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if _, err := db.Exec(l1pSchema); err != nil {
		return "", fmt.Errorf("create l1p schema in %s: %w", path, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin %s: %w", path, err)
	}
	defer tx.Rollback()

	for i := range orbits {
		o := &orbits[i]
		if len(o.Points) == 0 {
			return "", fmt.Errorf("orbit %s has no points", o.ID)
		}
		_, err := tx.Exec(
			`INSERT INTO orbits (orbit_id, start_unix, end_unix, point_count) VALUES (?, ?, ?, ?)`,
			o.ID, timeToSeconds(o.StartTime()), timeToSeconds(o.EndTime()), len(o.Points),
		)
		if err != nil {
			return "", fmt.Errorf("insert orbit %s: %w", o.ID, err)
		}
		for _, p := range o.Points {
			var distCoast interface{}
			if !math.IsNaN(p.DistCoastM) {
				distCoast = p.DistCoastM
			}
			_, err := tx.Exec(
				`INSERT INTO points (orbit_id, idx, time_unix, lat, lon, surface_flag, dist_coast_m)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				o.ID, p.Index, timeToSeconds(p.Time), p.Lat, p.Lon, p.SurfaceFlag, distCoast,
			)
			if err != nil {
				return "", fmt.Errorf("insert point %s/%d: %w", o.ID, p.Index, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit %s: %w", path, err)
	}
	return path, nil
}

// L2IRow is one parameter record addressed by orbit and index. Values
// align with the column names passed to WriteL2I; NaN entries are
// stored as NULL.
type L2IRow struct {
	Ref    PointRef
	Values []float64
}

// WriteL2I writes one mission-period parameter archive with the given
// parameter columns, replacing any existing file. Returns the file
// path.
func (w *Writer) WriteL2I(mission, version string, period track.Period, names []string, rows []L2IRow) (string, error) {
	for _, n := range names {
		if !validColumn(n) {
			return "", fmt.Errorf("invalid parameter column %q", n)
		}
	}

	store := NewL2IStore(w.L2IRoot, map[string]string{mission: version})
	path, err := store.Path(mission, period)
	if err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("replace %s: %w", path, err)
	}

	db, err := createArchive(path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	cols := make([]string, 0, len(names))
	for _, n := range names {
		cols = append(cols, fmt.Sprintf("\t%s REAL,", n))
	}
	schema := fmt.Sprintf(`
CREATE TABLE records (
	orbit_id TEXT NOT NULL,
	idx      INTEGER NOT NULL,
%s
	PRIMARY KEY (orbit_id, idx)
);`, strings.Join(cols, "\n"))
	if _, err := db.Exec(schema); err != nil {
		return "", fmt.Errorf("create l2i schema in %s: %w", path, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)+2), ", ")
	insert := fmt.Sprintf(
		`INSERT INTO records (orbit_id, idx, %s) VALUES (%s)`,
		strings.Join(names, ", "), placeholders)

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin %s: %w", path, err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if len(row.Values) != len(names) {
			return "", fmt.Errorf("row %s/%d has %d values, want %d", row.Ref.OrbitID, row.Ref.Idx, len(row.Values), len(names))
		}
		args := make([]interface{}, 0, len(names)+2)
		args = append(args, row.Ref.OrbitID, row.Ref.Idx)
		for _, v := range row.Values {
			if math.IsNaN(v) {
				args = append(args, nil)
			} else {
				args = append(args, v)
			}
		}
		if _, err := tx.Exec(insert, args...); err != nil {
			return "", fmt.Errorf("insert record %s/%d: %w", row.Ref.OrbitID, row.Ref.Idx, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit %s: %w", path, err)
	}
	return path, nil
}
