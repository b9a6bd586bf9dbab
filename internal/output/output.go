// Package output writes per-period match results as CSV files. Files
// are written to a temporary name and renamed into place, so a
// cancelled or failed period never leaves a partial file behind.
package output

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/iceXai/ccip-xo-id/internal/match"
	"github.com/iceXai/ccip-xo-id/internal/monitoring"
)

// Writer produces the period CSV files for one run configuration.
type Writer struct {
	refMission   string
	matchMission string
	parameters   []string
	logf         func(format string, v ...interface{})
}

// NewWriter creates a writer for the given carrier pair and parameter
// columns (config order).
func NewWriter(refMission, matchMission string, parameters []string) *Writer {
	return &Writer{
		refMission:   refMission,
		matchMission: matchMission,
		parameters:   parameters,
		logf:         monitoring.Prefixed("output"),
	}
}

// Header returns the CSV column names: record identity, per-carrier
// times, orbits and row spans, the point distance, then one
// reference/match column pair per configured parameter.
func (w *Writer) Header() []string {
	h := []string{
		"match_id", "mode", "lat", "lon",
		"time_" + w.refMission, "time_" + w.matchMission, "dt_hours",
		"orbit_" + w.refMission, "orbit_" + w.matchMission,
		"idx_first_" + w.refMission, "idx_last_" + w.refMission,
		"idx_first_" + w.matchMission, "idx_last_" + w.matchMission,
		"distance_m",
	}
	for _, p := range w.parameters {
		h = append(h, p+"_"+w.refMission, p+"_"+w.matchMission)
	}
	return h
}

// WritePeriod writes all records of one period to path. A period with
// zero records still produces a header-only file, marking it computed.
func (w *Writer) WritePeriod(path string, recs []match.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	cw := csv.NewWriter(tmp)
	cw.Write(w.Header())
	for i := range recs {
		cw.Write(w.row(&recs[i]))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	tmp = nil
	w.logf("wrote %d records to %s", len(recs), path)
	return nil
}

func (w *Writer) row(r *match.Record) []string {
	row := []string{
		r.ID,
		string(r.Mode),
		fmt.Sprintf("%.6f", r.Lat),
		fmt.Sprintf("%.6f", r.Lon),
		r.RefTime.UTC().Format(time.RFC3339Nano),
		r.MatchTime.UTC().Format(time.RFC3339Nano),
		fmt.Sprintf("%.6f", r.DtHours),
		r.Ref.OrbitID,
		r.Match.OrbitID,
		strconv.Itoa(r.Ref.FirstIdx),
		strconv.Itoa(r.Ref.LastIdx),
		strconv.Itoa(r.Match.FirstIdx),
		strconv.Itoa(r.Match.LastIdx),
		distanceField(r.DistanceM),
	}
	for i := range w.parameters {
		row = append(row, paramField(r.RefValues, i), paramField(r.MatchValues, i))
	}
	return row
}

// distanceField is empty for crossovers, where the crossing itself has
// no separation.
func distanceField(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.3f", v)
}

// paramField serializes missing values as NaN, keeping the record.
func paramField(vals []float64, i int) string {
	if i >= len(vals) || math.IsNaN(vals[i]) {
		return "NaN"
	}
	return fmt.Sprintf("%.6f", vals[i])
}
