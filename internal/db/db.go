// Package db manages the run bookkeeping database: one SQLite file
// under the output directory, recording every computed period. The
// schema is owned by embedded golang-migrate migrations.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationsSource returns the migration files rooted at their
// directory.
func migrationsSource() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// DB is the runs database handle.
type DB struct {
	*sql.DB
}

// Open opens the runs database, creating the file and its parent
// directory if needed, and applies pending migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create runs db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open runs db %s: %w", path, err)
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	db := &DB{sqlDB}
	fsys, err := migrationsSource()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	if err := db.migrateUp(fsys); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
