package params

import (
	"context"
	"errors"
	"math"

	"github.com/iceXai/ccip-xo-id/internal/archive"
	"github.com/iceXai/ccip-xo-id/internal/match"
	"github.com/iceXai/ccip-xo-id/internal/monitoring"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

// Extractor annotates match records with the configured parameters,
// read at each record's sampled file row from both missions' l2i
// archives.
type Extractor struct {
	store *archive.L2IStore
	names []string
	logf  func(format string, v ...interface{})
}

// NewExtractor builds an extractor for an already validated parameter
// list. Order is preserved into the record value slices.
func NewExtractor(store *archive.L2IStore, names []string) *Extractor {
	return &Extractor{
		store: store,
		names: names,
		logf:  monitoring.Prefixed("params"),
	}
}

// Stats counts degraded extractions. Neither condition drops a match:
// absent values stay NaN.
type Stats struct {
	MissingValues   int
	MissingArchives int
}

// Annotate fills RefValues and MatchValues on every record in place,
// one value per configured parameter. A value missing from the archive
// (no row, or NULL) stays NaN. A whole archive missing for one mission
// degrades that mission's side to NaN with a warning.
func (e *Extractor) Annotate(ctx context.Context, refMission, matchMission string, period track.Period, recs []match.Record) (Stats, error) {
	var stats Stats
	if len(e.names) == 0 || len(recs) == 0 {
		return stats, nil
	}

	refRefs := make([]archive.PointRef, len(recs))
	matchRefs := make([]archive.PointRef, len(recs))
	for i := range recs {
		refRefs[i] = archive.PointRef{OrbitID: recs[i].Ref.OrbitID, Idx: recs[i].Ref.SampleIdx}
		matchRefs[i] = archive.PointRef{OrbitID: recs[i].Match.OrbitID, Idx: recs[i].Match.SampleIdx}
	}

	refValues, err := e.readSide(ctx, refMission, period, refRefs, &stats)
	if err != nil {
		return stats, err
	}
	matchValues, err := e.readSide(ctx, matchMission, period, matchRefs, &stats)
	if err != nil {
		return stats, err
	}

	for i := range recs {
		recs[i].RefValues = e.rowValues(refValues, refRefs[i], &stats)
		recs[i].MatchValues = e.rowValues(matchValues, matchRefs[i], &stats)
	}
	return stats, nil
}

// readSide reads one mission's values, degrading a missing archive to
// an empty result.
func (e *Extractor) readSide(ctx context.Context, mission string, period track.Period, refs []archive.PointRef, stats *Stats) (map[archive.PointRef][]float64, error) {
	values, err := e.store.ReadValues(ctx, mission, period, refs, e.names)
	if errors.Is(err, archive.ErrUnavailable) {
		stats.MissingArchives++
		e.logf("warning: %v, %s parameters default to NaN", err, mission)
		return nil, nil
	}
	return values, err
}

func (e *Extractor) rowValues(values map[archive.PointRef][]float64, ref archive.PointRef, stats *Stats) []float64 {
	if vals, ok := values[ref]; ok {
		for _, v := range vals {
			if math.IsNaN(v) {
				stats.MissingValues++
			}
		}
		return vals
	}
	out := make([]float64, len(e.names))
	for i := range out {
		out[i] = math.NaN()
	}
	stats.MissingValues += len(out)
	return out
}
