package output

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
)

// Row is one parsed output record, reduced to the fields reporting
// needs. DistanceM is NaN for crossover files.
type Row struct {
	Lat       float64
	Lon       float64
	DtHours   float64
	DistanceM float64
}

// ReadRows parses a period CSV back into rows. Columns are located by
// header name, so files with any parameter set read the same way.
func ReadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: missing header", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, name := range []string{"lat", "lon", "dt_hours", "distance_m"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("parse %s: missing column %s", path, name)
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		r := Row{
			Lat:       parseField(rec[col["lat"]]),
			Lon:       parseField(rec[col["lon"]]),
			DtHours:   parseField(rec[col["dt_hours"]]),
			DistanceM: parseField(rec[col["distance_m"]]),
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func parseField(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
