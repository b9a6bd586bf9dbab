// Package config loads the YAML run configuration and validates it
// into an immutable RunConfig. Validation failures are the only errors
// that abort the process; everything later degrades per period.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iceXai/ccip-xo-id/internal/geo"
	"github.com/iceXai/ccip-xo-id/internal/match"
	"github.com/iceXai/ccip-xo-id/internal/params"
	"github.com/iceXai/ccip-xo-id/internal/track"
)

// ValidationError reports one invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, v ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, v...)}
}

// RunConfig is the validated run configuration, shared read-only by
// all period workers.
type RunConfig struct {
	RefMission   string
	MatchMission string

	Mode    match.Mode
	BufferM float64
	MaxDt   time.Duration
	AOI     geo.AOI

	L1PRoot     string
	L2IRoot     string
	L1PVersions map[string]string
	L2IVersions map[string]string

	OutputDir  string
	Override   bool
	Jobs       int
	Periods    []track.Period
	Parameters []string
}

// OutputPath returns the period's CSV file. Its existence is the
// compute-if-absent key for the period.
func (c *RunConfig) OutputPath(p track.Period) string {
	name := fmt.Sprintf("%s_%s_%s_%s.csv", c.Mode, c.RefMission, c.MatchMission, p.Code())
	return filepath.Join(c.OutputDir, name)
}

// RunsDBPath returns the bookkeeping database under the output
// directory.
func (c *RunConfig) RunsDBPath() string {
	return filepath.Join(c.OutputDir, "xoid_runs.db")
}

// MatchParams returns the matcher parameters for this run.
func (c *RunConfig) MatchParams() match.Params {
	return match.Params{Mode: c.Mode, BufferM: c.BufferM, MaxDt: c.MaxDt}
}

type missionVersions struct {
	L1P string `mapstructure:"l1p"`
	L2I string `mapstructure:"l2i"`
}

// file mirrors the YAML document.
type file struct {
	Carrier struct {
		Reference string `mapstructure:"reference"`
		Match     string `mapstructure:"match"`
	} `mapstructure:"carrier"`
	Matching struct {
		Type   string  `mapstructure:"type"`
		Buffer float64 `mapstructure:"buffer"`
		Dt     float64 `mapstructure:"dt"`
	} `mapstructure:"matching"`
	AOI   string `mapstructure:"aoi"`
	Input struct {
		L1P string `mapstructure:"l1p"`
		L2I string `mapstructure:"l2i"`
	} `mapstructure:"input"`
	Version struct {
		Reference missionVersions `mapstructure:"reference"`
		Match     missionVersions `mapstructure:"match"`
	} `mapstructure:"version"`
	Output   string `mapstructure:"output"`
	Override bool   `mapstructure:"override"`
	Jobs     int    `mapstructure:"jobs"`
	Date     struct {
		Year  []int `mapstructure:"year"`
		Month []int `mapstructure:"month"`
	} `mapstructure:"date"`
	Parameter []string `mapstructure:"parameter"`
}

// Load reads, parses and validates the configuration file. Environment
// variables prefixed XOID_ override file values (dots become
// underscores, e.g. XOID_OUTPUT).
func Load(path string) (*RunConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("XOID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, invalidf("config", "%v", err)
	}
	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, invalidf("config", "%v", err)
	}
	return f.build()
}

func (f *file) build() (*RunConfig, error) {
	if f.Carrier.Reference == "" {
		return nil, invalidf("carrier.reference", "missing mission name")
	}
	if f.Carrier.Match == "" {
		return nil, invalidf("carrier.match", "missing mission name")
	}
	if f.Carrier.Reference == f.Carrier.Match {
		return nil, invalidf("carrier", "reference and match missions must differ")
	}

	mode, err := match.ParseMode(f.Matching.Type)
	if err != nil {
		return nil, invalidf("matching.type", "%v", err)
	}
	if !(f.Matching.Buffer > 0) {
		return nil, invalidf("matching.buffer", "want a positive radius in meters, got %v", f.Matching.Buffer)
	}
	if !(f.Matching.Dt > 0) {
		return nil, invalidf("matching.dt", "want a positive window in hours, got %v", f.Matching.Dt)
	}

	aoi, err := geo.ParseAOI(f.AOI)
	if err != nil {
		return nil, invalidf("aoi", "%v", err)
	}

	if err := checkDir("input.l1p", f.Input.L1P); err != nil {
		return nil, err
	}
	if err := checkDir("input.l2i", f.Input.L2I); err != nil {
		return nil, err
	}
	if f.Output == "" {
		return nil, invalidf("output", "missing directory")
	}

	for _, v := range []struct{ field, value string }{
		{"version.reference.l1p", f.Version.Reference.L1P},
		{"version.reference.l2i", f.Version.Reference.L2I},
		{"version.match.l1p", f.Version.Match.L1P},
		{"version.match.l2i", f.Version.Match.L2I},
	} {
		if v.value == "" {
			return nil, invalidf(v.field, "missing version tag")
		}
	}

	jobs := f.Jobs
	if jobs < 0 {
		return nil, invalidf("jobs", "want a non-negative worker count, got %d", jobs)
	}
	if jobs == 0 {
		jobs = runtime.NumCPU()
	}

	periods, err := pairPeriods(f.Date.Year, f.Date.Month)
	if err != nil {
		return nil, err
	}

	if err := params.Validate(f.Parameter); err != nil {
		return nil, invalidf("parameter", "%v", err)
	}

	return &RunConfig{
		RefMission:   f.Carrier.Reference,
		MatchMission: f.Carrier.Match,
		Mode:         mode,
		BufferM:      f.Matching.Buffer,
		MaxDt:        time.Duration(f.Matching.Dt * float64(time.Hour)),
		AOI:          aoi,
		L1PRoot:      f.Input.L1P,
		L2IRoot:      f.Input.L2I,
		L1PVersions: map[string]string{
			f.Carrier.Reference: f.Version.Reference.L1P,
			f.Carrier.Match:     f.Version.Match.L1P,
		},
		L2IVersions: map[string]string{
			f.Carrier.Reference: f.Version.Reference.L2I,
			f.Carrier.Match:     f.Version.Match.L2I,
		},
		OutputDir:  f.Output,
		Override:   f.Override,
		Jobs:       jobs,
		Periods:    periods,
		Parameters: f.Parameter,
	}, nil
}

func checkDir(field, dir string) error {
	if dir == "" {
		return invalidf(field, "missing directory")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return invalidf(field, "%v", err)
	}
	if !info.IsDir() {
		return invalidf(field, "%s is not a directory", dir)
	}
	return nil
}

// pairPeriods zips the year and month lists positionally into periods.
func pairPeriods(years, months []int) ([]track.Period, error) {
	if len(years) == 0 {
		return nil, invalidf("date.year", "at least one entry required")
	}
	if len(years) != len(months) {
		return nil, invalidf("date", "year and month lists pair positionally, got %d years and %d months",
			len(years), len(months))
	}
	seen := make(map[track.Period]bool, len(years))
	periods := make([]track.Period, 0, len(years))
	for i := range years {
		p := track.Period{Year: years[i], Month: months[i]}
		if !p.Valid() {
			return nil, invalidf("date", "entry %d: %d-%d is not a valid calendar month", i, years[i], months[i])
		}
		if seen[p] {
			return nil, invalidf("date", "period %s listed twice", p.Code())
		}
		seen[p] = true
		periods = append(periods, p)
	}
	return periods, nil
}
