// Command gen-archive writes synthetic L1p and L2i archives containing
// crossing polar ground tracks for two missions, for demos and manual
// pipeline runs. Reference passes run south-north along meridians in
// the eastern Arctic; match passes sweep west-east along parallels, a
// few hours later, so every meridian/parallel pair crosses.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/iceXai/ccip-xo-id/internal/archive"
	"github.com/iceXai/ccip-xo-id/internal/params"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

func main() {
	l1pRoot := flag.String("l1p", "data/l1p", "L1p archive root")
	l2iRoot := flag.String("l2i", "data/l2i", "L2i archive root")
	refMission := flag.String("ref", "cryosat2", "reference mission id")
	matchMission := flag.String("match", "envisat", "match mission id")
	version := flag.String("version", "v1", "product version directory")
	periodCode := flag.String("period", "200311", "period to generate (yyyymm)")
	passes := flag.Int("passes", 4, "passes per mission")
	seed := flag.Int64("seed", 1, "parameter noise seed")
	flag.Parse()

	p, err := parsePeriod(*periodCode)
	if err != nil {
		log.Fatalf("invalid period: %v", err)
	}

	w := &archive.Writer{L1PRoot: *l1pRoot, L2IRoot: *l2iRoot}
	rng := rand.New(rand.NewSource(*seed))
	start := time.Date(p.Year, time.Month(p.Month), 1, 6, 0, 0, 0, time.UTC)

	refOrbits := make([]track.Orbit, 0, *passes)
	matchOrbits := make([]track.Orbit, 0, *passes)
	for k := 0; k < *passes; k++ {
		day := start.Add(time.Duration(k) * 26 * time.Hour)
		lon := 80 + 24*float64(k%4)
		refOrbits = append(refOrbits,
			buildOrbit(fmt.Sprintf("%s-a%03d", *refMission, k+1), day, meridianPts(lon, 74, 0.05, 160)))

		lat := 75 + 1.5*float64(k%4)
		matchOrbits = append(matchOrbits,
			buildOrbit(fmt.Sprintf("%s-d%03d", *matchMission, k+1), day.Add(2*time.Hour), parallelPts(lat, 75, 0.625, 160)))
	}

	names := make([]string, len(params.Registry))
	for i, par := range params.Registry {
		names[i] = par.Name
	}

	for _, m := range []struct {
		mission string
		orbits  []track.Orbit
	}{
		{*refMission, refOrbits},
		{*matchMission, matchOrbits},
	} {
		path, err := w.WriteL1P(m.mission, *version, p, m.orbits)
		if err != nil {
			log.Fatalf("write l1p %s: %v", m.mission, err)
		}
		log.Printf("✓ Created: %s (%d orbits)", path, len(m.orbits))

		path, err = w.WriteL2I(m.mission, *version, p, names, valueRows(rng, m.orbits, names))
		if err != nil {
			log.Fatalf("write l2i %s: %v", m.mission, err)
		}
		log.Printf("✓ Created: %s", path)
	}
}

func parsePeriod(code string) (track.Period, error) {
	if len(code) != 6 {
		return track.Period{}, fmt.Errorf("period %q: want yyyymm", code)
	}
	year, err := strconv.Atoi(code[:4])
	if err != nil {
		return track.Period{}, err
	}
	month, err := strconv.Atoi(code[4:])
	if err != nil {
		return track.Period{}, err
	}
	p := track.Period{Year: year, Month: month}
	if !p.Valid() {
		return track.Period{}, fmt.Errorf("period %q is not a valid calendar month", code)
	}
	return p, nil
}

func buildOrbit(id string, start time.Time, pts [][2]float64) track.Orbit {
	o := track.Orbit{ID: id}
	for i, pt := range pts {
		point := track.Point{
			Index:       i,
			Time:        start.Add(time.Duration(i) * 10 * time.Second),
			Lat:         pt[0],
			Lon:         pt[1],
			SurfaceFlag: track.SurfaceOcean,
			DistCoastM:  math.NaN(),
		}
		// Sprinkle non-ocean flags and near-coast points so generated
		// archives exercise the load filter.
		if i%37 == 0 {
			point.SurfaceFlag = 2
		}
		if i%53 == 0 {
			point.DistCoastM = 3000
		}
		o.Points = append(o.Points, point)
	}
	return o
}

func meridianPts(lon, lat0, dLat float64, n int) [][2]float64 {
	pts := make([][2]float64, n)
	for i := range pts {
		pts[i] = [2]float64{lat0 + float64(i)*dLat, lon}
	}
	return pts
}

func parallelPts(lat, lon0, dLon float64, n int) [][2]float64 {
	pts := make([][2]float64, n)
	for i := range pts {
		pts[i] = [2]float64{lat, lon0 + float64(i)*dLon}
	}
	return pts
}

// typical magnitudes per extractable parameter, for plausible demo data.
var baseValues = map[string]float64{
	params.RadarFreeboard:      0.15,
	params.SeaIceFreeboard:     0.35,
	params.SeaIceThickness:     2.1,
	params.SnowDepth:           0.25,
	params.SnowDensity:         300,
	params.SeaIceDensity:       910,
	params.SeaLevelAnomaly:     0.05,
	params.SeaIceConcentration: 92,
	params.SeaIceType:          0.7,
	params.PulsePeakiness:      12,
	params.Sigma0:              14,
	params.LeadingEdgeWidth:    0.8,
	params.MeanSeaSurface:      18,
	params.SeaSurfaceHeight:    18.1,
}

func valueRows(rng *rand.Rand, orbits []track.Orbit, names []string) []archive.L2IRow {
	var rows []archive.L2IRow
	for _, o := range orbits {
		for _, pt := range o.Points {
			values := make([]float64, len(names))
			for i, name := range names {
				if rng.Float64() < 0.05 {
					values[i] = math.NaN()
					continue
				}
				base := baseValues[name]
				values[i] = base + 0.1*base*rng.NormFloat64()
			}
			rows = append(rows, archive.L2IRow{
				Ref:    archive.PointRef{OrbitID: o.ID, Idx: pt.Index},
				Values: values,
			})
		}
	}
	return rows
}
