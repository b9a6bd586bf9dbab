package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/iceXai/ccip-xo-id/internal/output"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

// WritePNG renders a static match-location quick-look for embedding in
// documents. The period's CSV must exist.
func (b *Builder) WritePNG(p track.Period) (string, error) {
	rows, err := output.ReadRows(b.cfg.OutputPath(p))
	if err != nil {
		return "", err
	}

	pts := make(plotter.XYs, len(rows))
	for i, r := range rows {
		pts[i].X = r.Lon
		pts[i].Y = r.Lat
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s %s vs %s, %s: %d matches",
		b.cfg.Mode, b.cfg.RefMission, b.cfg.MatchMission, p.Code(), len(rows))
	pl.X.Label.Text = "Longitude (°E)"
	pl.Y.Label.Text = "Latitude (°N)"

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return "", fmt.Errorf("build scatter: %w", err)
	}
	sc.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	sc.GlyphStyle.Radius = vg.Points(2)
	pl.Add(sc)

	path := b.PNGPath(p)
	if err := pl.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save quick-look: %w", err)
	}
	b.logf("wrote %s", path)
	return path, nil
}
