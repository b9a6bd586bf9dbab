// Package pipeline runs the configured periods end to end: load both
// carriers, match, annotate parameters, write the period CSV, and
// record the run. Periods are independent and processed by a bounded
// worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/iceXai/ccip-xo-id/internal/archive"
	"github.com/iceXai/ccip-xo-id/internal/config"
	"github.com/iceXai/ccip-xo-id/internal/db"
	"github.com/iceXai/ccip-xo-id/internal/match"
	"github.com/iceXai/ccip-xo-id/internal/monitoring"
	"github.com/iceXai/ccip-xo-id/internal/output"
	"github.com/iceXai/ccip-xo-id/internal/params"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

// Status of one processed period.
type Status string

const (
	// StatusCompleted means the period CSV was written and recorded.
	StatusCompleted Status = "completed"
	// StatusSkipped means the output already existed and override is off.
	StatusSkipped Status = "skipped"
	// StatusFailed means the period errored; the run continues.
	StatusFailed Status = "failed"
	// StatusAborted means cancellation stopped the period before any
	// output was produced. Aborted periods are not recorded.
	StatusAborted Status = "aborted"
)

// PeriodResult reports the outcome of one period.
type PeriodResult struct {
	Period  track.Period
	Status  Status
	Matches int
	Err     error
}

// Summary aggregates a whole run.
type Summary struct {
	Periods   int
	Completed int
	Skipped   int
	Failed    int
	Aborted   int
	Matches   int
}

// Pipeline owns the shared, read-only run state. One Pipeline serves
// all period workers.
type Pipeline struct {
	cfg    *config.RunConfig
	l1p    *archive.L1PStore
	l2i    *archive.L2IStore
	runsDB *db.DB
	runs   *db.RunStore
	writer *output.Writer
	logf   func(format string, v ...interface{})
}

// New prepares a pipeline for the given configuration. It opens the
// runs database under the output directory, so the output root is
// created here even when every period ends up skipped.
func New(cfg *config.RunConfig) (*Pipeline, error) {
	runsDB, err := db.Open(cfg.RunsDBPath())
	if err != nil {
		return nil, fmt.Errorf("open runs database: %w", err)
	}

	filter := track.Filter{AOI: cfg.AOI, MinCoastDistM: cfg.BufferM}
	return &Pipeline{
		cfg:    cfg,
		l1p:    archive.NewL1PStore(cfg.L1PRoot, cfg.L1PVersions, filter),
		l2i:    archive.NewL2IStore(cfg.L2IRoot, cfg.L2IVersions),
		runsDB: runsDB,
		runs:   db.NewRunStore(runsDB),
		writer: output.NewWriter(cfg.RefMission, cfg.MatchMission, cfg.Parameters),
		logf:   monitoring.Prefixed("pipeline"),
	}, nil
}

// Close releases the runs database.
func (pl *Pipeline) Close() error {
	return pl.runsDB.Close()
}

// Run processes every configured period and returns the aggregated
// summary. Cancellation abandons unprocessed periods; finished ones
// keep their outputs. The error is the context's, nil otherwise.
func (pl *Pipeline) Run(ctx context.Context) (*Summary, error) {
	workers := pl.cfg.Jobs
	if workers > len(pl.cfg.Periods) {
		workers = len(pl.cfg.Periods)
	}
	pl.logf("run start: %s vs %s, mode %s, %d periods, %d workers",
		pl.cfg.RefMission, pl.cfg.MatchMission, pl.cfg.Mode, len(pl.cfg.Periods), workers)

	jobs := make(chan track.Period)
	results := make(chan PeriodResult, len(pl.cfg.Periods))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				results <- pl.runPeriod(ctx, p)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range pl.cfg.Periods {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	sum := &Summary{Periods: len(pl.cfg.Periods)}
	for res := range results {
		switch res.Status {
		case StatusCompleted:
			sum.Completed++
			sum.Matches += res.Matches
		case StatusSkipped:
			sum.Skipped++
		case StatusFailed:
			sum.Failed++
		case StatusAborted:
			sum.Aborted++
		}
	}
	sum.Aborted += sum.Periods - sum.Completed - sum.Skipped - sum.Failed - sum.Aborted

	pl.logf("run complete: %d completed, %d cached, %d failed, %d aborted, %d matches total",
		sum.Completed, sum.Skipped, sum.Failed, sum.Aborted, sum.Matches)
	return sum, ctx.Err()
}

// runPeriod executes one period start to finish.
func (pl *Pipeline) runPeriod(ctx context.Context, p track.Period) PeriodResult {
	outPath := pl.cfg.OutputPath(p)
	if !pl.cfg.Override {
		if _, err := os.Stat(outPath); err == nil {
			pl.logf("period %s: output exists, skipping (override off)", p.Code())
			return PeriodResult{Period: p, Status: StatusSkipped}
		}
	}

	started := time.Now()

	// Both carriers load concurrently; join before matching.
	type loaded struct {
		tr    *track.Track
		stats archive.LoadStats
		err   error
	}
	refCh := make(chan loaded, 1)
	go func() {
		tr, stats, err := pl.l1p.LoadTrack(ctx, pl.cfg.RefMission, p)
		refCh <- loaded{tr, stats, err}
	}()
	mTr, mStats, mErr := pl.l1p.LoadTrack(ctx, pl.cfg.MatchMission, p)
	ref := <-refCh

	if err := firstError(ref.err, mErr); err != nil {
		return pl.failPeriod(ctx, p, started, err)
	}
	pl.logf("period %s: loaded %d reference and %d match orbits", p.Code(),
		len(ref.tr.Orbits), len(mTr.Orbits))

	matcher := match.New(pl.cfg.MatchParams(), pl.cfg.AOI)
	res, err := matcher.Run(ctx, ref.tr, mTr)
	if err != nil {
		return pl.failPeriod(ctx, p, started, err)
	}

	extractor := params.NewExtractor(pl.l2i, pl.cfg.Parameters)
	extStats, err := extractor.Annotate(ctx, pl.cfg.RefMission, pl.cfg.MatchMission, p, res.Records)
	if err != nil {
		return pl.failPeriod(ctx, p, started, err)
	}

	if err := pl.writer.WritePeriod(outPath, res.Records); err != nil {
		return pl.failPeriod(ctx, p, started, err)
	}

	run := pl.newRun(p, started)
	run.Status = db.StatusCompleted
	run.MatchCount = len(res.Records)
	run.CandidateCount = res.Stats.CandidatePairs
	run.WarningCount = res.Stats.Warnings() + extStats.MissingArchives +
		ref.stats.CorruptOrbits + mStats.CorruptOrbits
	run.DtHoursMean, run.DtHoursStddev, run.DistanceMean, run.DistanceStddev = summarize(res.Records)
	if err := pl.runs.Insert(run); err != nil {
		pl.logf("period %s: recording run failed: %v", p.Code(), err)
	}

	pl.logf("period %s: %d matches, dt %s h, distance %s m, %d warnings, %d missing values",
		p.Code(), run.MatchCount,
		meanStddevString(run.DtHoursMean, run.DtHoursStddev),
		meanStddevString(run.DistanceMean, run.DistanceStddev),
		run.WarningCount, extStats.MissingValues)
	return PeriodResult{Period: p, Status: StatusCompleted, Matches: run.MatchCount}
}

// failPeriod logs and records a failed period, unless the failure is
// the run being cancelled, which leaves no trace.
func (pl *Pipeline) failPeriod(ctx context.Context, p track.Period, started time.Time, err error) PeriodResult {
	if ctx.Err() != nil && !errors.Is(err, archive.ErrUnavailable) {
		return PeriodResult{Period: p, Status: StatusAborted, Err: err}
	}

	pl.logf("period %s failed: %v", p.Code(), err)
	run := pl.newRun(p, started)
	run.Status = db.StatusFailed
	run.Error = err.Error()
	if ierr := pl.runs.Insert(run); ierr != nil {
		pl.logf("period %s: recording failure failed: %v", p.Code(), ierr)
	}
	return PeriodResult{Period: p, Status: StatusFailed, Err: err}
}

// newRun builds the common fields of a run row. Stats start as NaN so
// absent values persist as NULL.
func (pl *Pipeline) newRun(p track.Period, started time.Time) *db.Run {
	return &db.Run{
		Period:         p.Code(),
		Mode:           string(pl.cfg.Mode),
		RefMission:     pl.cfg.RefMission,
		MatchMission:   pl.cfg.MatchMission,
		OutputPath:     pl.cfg.OutputPath(p),
		StartedAt:      started.UnixNano(),
		CompletedAt:    time.Now().UnixNano(),
		DtHoursMean:    math.NaN(),
		DtHoursStddev:  math.NaN(),
		DistanceMean:   math.NaN(),
		DistanceStddev: math.NaN(),
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// summarize computes the per-period time and distance statistics. The
// distance sample excludes crossover records, which carry no
// separation; all-NaN samples yield NaN, persisted as NULL.
func summarize(recs []match.Record) (dtMean, dtStddev, distMean, distStddev float64) {
	dt := make([]float64, 0, len(recs))
	dist := make([]float64, 0, len(recs))
	for i := range recs {
		dt = append(dt, recs[i].DtHours)
		if !math.IsNaN(recs[i].DistanceM) {
			dist = append(dist, recs[i].DistanceM)
		}
	}

	dtMean, dtStddev = math.NaN(), math.NaN()
	if len(dt) > 0 {
		dtMean = stat.Mean(dt, nil)
		dtStddev = stat.StdDev(dt, nil)
	}
	distMean, distStddev = math.NaN(), math.NaN()
	if len(dist) > 0 {
		distMean = stat.Mean(dist, nil)
		distStddev = stat.StdDev(dist, nil)
	}
	return dtMean, dtStddev, distMean, distStddev
}

func meanStddevString(mean, stddev float64) string {
	if math.IsNaN(mean) {
		return "n/a"
	}
	if math.IsNaN(stddev) {
		return fmt.Sprintf("%.3f", mean)
	}
	return fmt.Sprintf("%.3f±%.3f", mean, stddev)
}
