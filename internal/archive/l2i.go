package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/iceXai/ccip-xo-id/internal/track"
)

// PointRef addresses one measurement row within a period's archives.
type PointRef struct {
	OrbitID string
	Idx     int
}

// L2IStore reads geophysical parameter columns from L2i archives.
type L2IStore struct {
	root     string
	versions map[string]string
}

// NewL2IStore returns a store over the given archive root. versions
// maps mission id to the product version directory to read.
func NewL2IStore(root string, versions map[string]string) *L2IStore {
	return &L2IStore{root: root, versions: versions}
}

// Path returns the archive file for one mission and period.
func (s *L2IStore) Path(mission string, period track.Period) (string, error) {
	version, ok := s.versions[mission]
	if !ok {
		return "", fmt.Errorf("no l2i version configured for mission %q", mission)
	}
	name := fmt.Sprintf("l2i_%s_%s.db", mission, period.Code())
	return filepath.Join(s.root, mission, version, name), nil
}

// validColumn restricts parameter names to plain snake_case
// identifiers before they are spliced into SQL. The parameter registry
// only hands out such names; this guards direct callers.
func validColumn(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// ReadValues fetches the named parameter columns for the given rows of
// one mission and period. The result maps each found ref to values
// aligned with names; NULL columns come back as NaN. Refs whose row is
// absent from the archive are simply missing from the map. A missing
// archive file wraps ErrUnavailable so callers can degrade to NaN
// annotation instead of failing the period.
func (s *L2IStore) ReadValues(ctx context.Context, mission string, period track.Period, refs []PointRef, names []string) (map[PointRef][]float64, error) {
	if len(refs) == 0 || len(names) == 0 {
		return map[PointRef][]float64{}, nil
	}
	for _, n := range names {
		if !validColumn(n) {
			return nil, fmt.Errorf("invalid parameter column %q", n)
		}
	}

	path, err := s.Path(mission, period)
	if err != nil {
		return nil, err
	}
	db, err := openArchive("l2i", mission, period, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// Group the wanted rows per orbit and fetch each orbit's index
	// span in one range query. Spans are tight in practice: refs come
	// from match support points that cluster along short arcs.
	type span struct {
		min, max int
		want     map[int]bool
	}
	spans := make(map[string]*span)
	for _, ref := range refs {
		sp, ok := spans[ref.OrbitID]
		if !ok {
			sp = &span{min: ref.Idx, max: ref.Idx, want: make(map[int]bool)}
			spans[ref.OrbitID] = sp
		}
		if ref.Idx < sp.min {
			sp.min = ref.Idx
		}
		if ref.Idx > sp.max {
			sp.max = ref.Idx
		}
		sp.want[ref.Idx] = true
	}

	query := fmt.Sprintf(
		`SELECT idx, %s FROM records WHERE orbit_id = ? AND idx BETWEEN ? AND ?`,
		strings.Join(names, ", "))

	out := make(map[PointRef][]float64, len(refs))
	for orbitID, sp := range spans {
		if err := s.readOrbit(ctx, db, query, orbitID, sp.min, sp.max, sp.want, names, out); err != nil {
			return nil, fmt.Errorf("read %s values for orbit %s in %s: %w", mission, orbitID, path, err)
		}
	}
	return out, nil
}

func (s *L2IStore) readOrbit(ctx context.Context, db *sql.DB, query, orbitID string, min, max int, want map[int]bool, names []string, out map[PointRef][]float64) error {
	rows, err := db.QueryContext(ctx, query, orbitID, min, max)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		cols := make([]sql.NullFloat64, len(names))
		dest := make([]interface{}, 0, len(names)+1)
		dest = append(dest, &idx)
		for i := range cols {
			dest = append(dest, &cols[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		if !want[idx] {
			continue
		}
		values := make([]float64, len(names))
		for i, c := range cols {
			if c.Valid {
				values[i] = c.Float64
			} else {
				values[i] = math.NaN()
			}
		}
		out[PointRef{OrbitID: orbitID, Idx: idx}] = values
	}
	return rows.Err()
}
