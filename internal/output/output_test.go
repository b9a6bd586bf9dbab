package output

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/iceXai/ccip-xo-id/internal/match"
	"github.com/iceXai/ccip-xo-id/internal/monitoring"
)

func init() {
	monitoring.SetLogger(func(string, ...interface{}) {})
}

var t0 = time.Date(2003, 11, 4, 12, 0, 0, 0, time.UTC)

func testRecords() []match.Record {
	return []match.Record{
		{
			ID:        "id-xo",
			Mode:      match.ModeXO,
			Lat:       80.000003,
			Lon:       10,
			RefTime:   t0,
			MatchTime: t0.Add(35 * time.Minute),
			DtHours:   35.0 / 60.0,
			DistanceM: math.NaN(),
			Ref:       match.Support{OrbitID: "cs-100", FirstIdx: 19, LastIdx: 20, SampleIdx: 20},
			Match:     match.Support{OrbitID: "en-200", FirstIdx: 49, LastIdx: 50, SampleIdx: 50},
			RefValues: []float64{0.15, math.NaN()},
			MatchValues: []float64{
				0.05, 1.2,
			},
		},
		{
			ID:          "id-otm",
			Mode:        match.ModeOTM,
			Lat:         70.25,
			Lon:         100.01,
			RefTime:     t0.Add(time.Hour),
			MatchTime:   t0.Add(70 * time.Minute),
			DtHours:     10.0 / 60.0,
			DistanceM:   812.5,
			Ref:         match.Support{OrbitID: "cs-101", FirstIdx: 7, LastIdx: 7, SampleIdx: 7},
			Match:       match.Support{OrbitID: "en-201", FirstIdx: 3, LastIdx: 3, SampleIdx: 3},
			RefValues:   []float64{0.21, 2.1},
			MatchValues: []float64{0.2, 1.9},
		},
	}
}

func TestHeaderLayout(t *testing.T) {
	w := NewWriter("cryosat2", "envisat", []string{"radar_freeboard", "sea_ice_thickness"})

	want := []string{
		"match_id", "mode", "lat", "lon",
		"time_cryosat2", "time_envisat", "dt_hours",
		"orbit_cryosat2", "orbit_envisat",
		"idx_first_cryosat2", "idx_last_cryosat2",
		"idx_first_envisat", "idx_last_envisat",
		"distance_m",
		"radar_freeboard_cryosat2", "radar_freeboard_envisat",
		"sea_ice_thickness_cryosat2", "sea_ice_thickness_envisat",
	}
	if diff := cmp.Diff(want, w.Header()); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestWritePeriodRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xo_cryosat2_envisat_200311.csv")
	w := NewWriter("cryosat2", "envisat", []string{"radar_freeboard", "sea_ice_thickness"})

	if err := w.WritePeriod(path, testRecords()); err != nil {
		t.Fatalf("WritePeriod: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	lines, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 records", len(lines))
	}
	if diff := cmp.Diff(w.Header(), lines[0]); diff != "" {
		t.Errorf("header row mismatch (-want +got):\n%s", diff)
	}

	xo := lines[1]
	if xo[0] != "id-xo" || xo[1] != "xo" {
		t.Errorf("identity columns = %q, %q; want id-xo, xo", xo[0], xo[1])
	}
	if xo[2] != "80.000003" || xo[3] != "10.000000" {
		t.Errorf("position columns = %q, %q", xo[2], xo[3])
	}
	if xo[4] != "2003-11-04T12:00:00Z" {
		t.Errorf("reference time = %q", xo[4])
	}
	if xo[5] != "2003-11-04T12:35:00Z" {
		t.Errorf("match time = %q", xo[5])
	}
	if xo[6] != "0.583333" {
		t.Errorf("dt_hours = %q", xo[6])
	}
	if xo[7] != "cs-100" || xo[8] != "en-200" {
		t.Errorf("orbit columns = %q, %q", xo[7], xo[8])
	}
	if xo[9] != "19" || xo[10] != "20" || xo[11] != "49" || xo[12] != "50" {
		t.Errorf("index columns = %v", xo[9:13])
	}
	if xo[13] != "" {
		t.Errorf("crossover distance_m = %q, want empty", xo[13])
	}
	if xo[14] != "0.150000" || xo[15] != "0.050000" {
		t.Errorf("radar_freeboard columns = %q, %q", xo[14], xo[15])
	}
	if xo[16] != "NaN" || xo[17] != "1.200000" {
		t.Errorf("sea_ice_thickness columns = %q, %q", xo[16], xo[17])
	}

	otm := lines[2]
	if otm[13] != "812.500" {
		t.Errorf("distance_m = %q, want 812.500", otm[13])
	}

	rows, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ReadRows returned %d rows, want 2", len(rows))
	}
	if !math.IsNaN(rows[0].DistanceM) {
		t.Errorf("crossover row distance = %v, want NaN", rows[0].DistanceM)
	}
	if rows[1].DistanceM != 812.5 {
		t.Errorf("row distance = %v, want 812.5", rows[1].DistanceM)
	}
	if math.Abs(rows[0].DtHours-35.0/60.0) > 1e-6 {
		t.Errorf("row dt_hours = %v", rows[0].DtHours)
	}
	if rows[1].Lat != 70.25 || rows[1].Lon != 100.01 {
		t.Errorf("row position = %v, %v", rows[1].Lat, rows[1].Lon)
	}
}

func TestWriteEmptyPeriodWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otm_envisat_ers2_200212.csv")
	w := NewWriter("envisat", "ers2", nil)

	if err := w.WritePeriod(path, nil); err != nil {
		t.Fatalf("WritePeriod: %v", err)
	}

	rows, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows from empty period, want 0", len(rows))
	}
}

func TestWriteReplacesExistingAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xo_cryosat2_envisat_200311.csv")
	w := NewWriter("cryosat2", "envisat", nil)

	recs := testRecords()
	if err := w.WritePeriod(path, recs[:1]); err != nil {
		t.Fatalf("first WritePeriod: %v", err)
	}
	if err := w.WritePeriod(path, recs); err != nil {
		t.Fatalf("second WritePeriod: %v", err)
	}

	rows, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows after rewrite, want 2", len(rows))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("output dir holds %d entries, want 1", len(entries))
	}
}

func TestReadRowsRejectsForeignCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.csv")
	if err := os.WriteFile(path, []byte("lat,lon\n1,2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := ReadRows(path); err == nil || !strings.Contains(err.Error(), "missing column") {
		t.Errorf("ReadRows error = %v, want missing column", err)
	}
}
