// Package report renders quick-look charts for completed periods from
// their output CSV files: an HTML page with a match-location scatter
// and time-difference histogram, and an optional PNG for embedding.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/iceXai/ccip-xo-id/internal/config"
	"github.com/iceXai/ccip-xo-id/internal/monitoring"
	"github.com/iceXai/ccip-xo-id/internal/output"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

// viridis ramp for the visual map scale.
var rampColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

const histogramBins = 24

// Builder renders reports for one run configuration.
type Builder struct {
	cfg  *config.RunConfig
	logf func(format string, v ...interface{})
}

func New(cfg *config.RunConfig) *Builder {
	return &Builder{cfg: cfg, logf: monitoring.Prefixed("report")}
}

// HTMLPath returns the report file for one period.
func (b *Builder) HTMLPath(p track.Period) string {
	name := fmt.Sprintf("report_%s_%s_%s_%s.html", b.cfg.Mode, b.cfg.RefMission, b.cfg.MatchMission, p.Code())
	return filepath.Join(b.cfg.OutputDir, name)
}

// PNGPath returns the quick-look image for one period.
func (b *Builder) PNGPath(p track.Period) string {
	name := fmt.Sprintf("quicklook_%s_%s_%s_%s.png", b.cfg.Mode, b.cfg.RefMission, b.cfg.MatchMission, p.Code())
	return filepath.Join(b.cfg.OutputDir, name)
}

// WriteHTML renders the period report page. The period's CSV must
// exist; report generation never recomputes matches.
func (b *Builder) WriteHTML(p track.Period) (string, error) {
	rows, err := output.ReadRows(b.cfg.OutputPath(p))
	if err != nil {
		return "", err
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s %s vs %s %s", b.cfg.Mode, b.cfg.RefMission, b.cfg.MatchMission, p.Code())
	page.AddCharts(b.locationScatter(p, rows), b.histogram(p, rows, dtSample, "time difference", "|dt| (h)"))
	if sample := distanceSample(rows); len(sample) > 0 {
		page.AddCharts(b.histogram(p, rows, distanceSample, "point distance", "distance (m)"))
	}

	path := b.HTMLPath(p)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	b.logf("wrote %s (%d matches)", path, len(rows))
	return path, nil
}

// locationScatter plots every match position, colored by |dt|.
func (b *Builder) locationScatter(p track.Period, rows []output.Row) components.Charter {
	data := make([]opts.ScatterData, 0, len(rows))
	maxDt := 0.0
	for _, r := range rows {
		if r.DtHours > maxDt {
			maxDt = r.DtHours
		}
		data = append(data, opts.ScatterData{Value: []interface{}{r.Lon, r.Lat, r.DtHours}})
	}
	if maxDt == 0 {
		maxDt = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Match locations",
			Subtitle: fmt.Sprintf("%s %s vs %s, %s, %d matches", b.cfg.Mode, b.cfg.RefMission, b.cfg.MatchMission, p.Code(), len(rows)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude (°E)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude (°N)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxDt),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: rampColors},
		}),
	)
	scatter.AddSeries("matches", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	return scatter
}

// histogram renders one binned bar chart over a sample drawn from the
// rows.
func (b *Builder) histogram(p track.Period, rows []output.Row, sampler func([]output.Row) []float64, title, axis string) components.Charter {
	labels, counts := binSample(sampler(rows), histogramBins)
	data := make([]opts.BarData, 0, len(counts))
	for _, c := range counts {
		data = append(data, opts.BarData{Value: c})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Match %s distribution", title),
			Subtitle: p.Code(),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: axis, NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "matches"}),
	)
	bar.SetXAxis(labels).AddSeries("matches", data)
	return bar
}

func dtSample(rows []output.Row) []float64 {
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(r.DtHours) {
			vals = append(vals, r.DtHours)
		}
	}
	return vals
}

func distanceSample(rows []output.Row) []float64 {
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(r.DistanceM) {
			vals = append(vals, r.DistanceM)
		}
	}
	return vals
}

// binSample buckets values into equal-width bins from zero to the
// sample maximum. Labels carry the lower bin edge.
func binSample(vals []float64, bins int) ([]string, []int) {
	max := 0.0
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}
	width := max / float64(bins)

	labels := make([]string, bins)
	counts := make([]int, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.2f", float64(i)*width)
	}
	for _, v := range vals {
		i := int(v / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
	}
	return labels, counts
}
