package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one bookkeeping row: a single period computed, or attempted,
// by one invocation. Statistics are NaN when the period produced no
// matches (and distance statistics always for crossover runs).
type Run struct {
	RunID          string
	Period         string
	Mode           string
	RefMission     string
	MatchMission   string
	Status         string
	MatchCount     int
	CandidateCount int
	WarningCount   int
	DtHoursMean    float64
	DtHoursStddev  float64
	DistanceMean   float64
	DistanceStddev float64
	OutputPath     string
	StartedAt      int64
	CompletedAt    int64
	Error          string
}

// RunStore persists runs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore on an open runs database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Insert persists a run row. An empty RunID and a zero StartedAt are
// filled in.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.StartedAt == 0 {
		run.StartedAt = time.Now().UnixNano()
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO match_runs (
				run_id, period, mode, ref_mission, match_mission, status,
				match_count, candidate_count, warning_count,
				dt_hours_mean, dt_hours_stddev, distance_m_mean, distance_m_stddev,
				output_path, started_at, completed_at, error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Period, run.Mode, run.RefMission, run.MatchMission, run.Status,
			run.MatchCount, run.CandidateCount, run.WarningCount,
			nanToNull(run.DtHoursMean), nanToNull(run.DtHoursStddev),
			nanToNull(run.DistanceMean), nanToNull(run.DistanceStddev),
			run.OutputPath, run.StartedAt, run.CompletedAt, nullableText(run.Error),
		)
		return err
	})
}

const runColumns = `run_id, period, mode, ref_mission, match_mission, status,
	match_count, candidate_count, warning_count,
	dt_hours_mean, dt_hours_stddev, distance_m_mean, distance_m_stddev,
	output_path, started_at, completed_at, error`

// LatestByPeriod returns the most recent run for a period code, or nil
// when the period has never been recorded.
func (s *RunStore) LatestByPeriod(period string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT `+runColumns+`
		FROM match_runs
		WHERE period = ?
		ORDER BY started_at DESC
		LIMIT 1`, period)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run for %s: %w", period, err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		dtMean     sql.NullFloat64
		dtStddev   sql.NullFloat64
		distMean   sql.NullFloat64
		distStddev sql.NullFloat64
		errText    sql.NullString
	)
	err := row.Scan(
		&run.RunID, &run.Period, &run.Mode, &run.RefMission, &run.MatchMission, &run.Status,
		&run.MatchCount, &run.CandidateCount, &run.WarningCount,
		&dtMean, &dtStddev, &distMean, &distStddev,
		&run.OutputPath, &run.StartedAt, &run.CompletedAt, &errText,
	)
	if err != nil {
		return nil, err
	}
	run.DtHoursMean = nullToNaN(dtMean)
	run.DtHoursStddev = nullToNaN(dtStddev)
	run.DistanceMean = nullToNaN(distMean)
	run.DistanceStddev = nullToNaN(distStddev)
	run.Error = errText.String
	return &run, nil
}

func nanToNull(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullableText(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
