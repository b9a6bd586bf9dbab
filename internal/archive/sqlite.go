package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iceXai/ccip-xo-id/internal/track"
)

// ErrUnavailable marks a period whose archive file does not exist.
// Errors returned by the stores wrap it together with mission, product
// and period, so errors.Is(err, ErrUnavailable) selects the skip-period
// path.
var ErrUnavailable = errors.New("archive unavailable")

// unavailable builds the canonical missing-archive error.
func unavailable(product, mission string, period track.Period, path string) error {
	return fmt.Errorf("%s archive for %s %s (%s): %w", product, mission, period, path, ErrUnavailable)
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// openArchive opens an existing archive file for reading. The file must
// already exist; sql.Open would otherwise create an empty database and
// mask a missing-archive condition.
func openArchive(product, mission string, period track.Period, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, unavailable(product, mission, period, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure %s: %w", path, err)
	}
	return db, nil
}

// createArchive opens (creating if needed) an archive file for writing
// and applies the standard pragmas.
func createArchive(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q on %s: %w", p, path, err)
		}
	}
	return db, nil
}

// secondsToTime converts archive REAL unix seconds to UTC time.
func secondsToTime(s float64) time.Time {
	sec := math.Floor(s)
	return time.Unix(int64(sec), int64((s-sec)*1e9)).UTC()
}

// timeToSeconds converts UTC time to archive REAL unix seconds.
func timeToSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
