// Package history keeps a small SQLite log of supervised builds.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ja/internal/model"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically, unlike RFC3339Nano which trims zeros.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// Concurrent builds in other directories write here too.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id          TEXT PRIMARY KEY,
		dir         TEXT NOT NULL,
		targets     TEXT NOT NULL DEFAULT '',
		started_at  TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		total       INTEGER NOT NULL DEFAULT 0,
		finished    INTEGER NOT NULL DEFAULT 0,
		exit_code   INTEGER NOT NULL,
		failed      INTEGER NOT NULL DEFAULT 0,
		interrupted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends rec, assigning an ID when it has none, and returns the ID.
func (s *Store) Record(rec model.BuildRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO builds (id, dir, targets, started_at, duration_ms, total, finished, exit_code, failed, interrupted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Dir, strings.Join(rec.Targets, "\x1f"),
		rec.StartedAt.UTC().Format(timeLayout), rec.Duration.Milliseconds(),
		rec.Total, rec.Finished, rec.ExitCode, boolToInt(rec.Failed), boolToInt(rec.Interrupted),
	)
	if err != nil {
		return "", fmt.Errorf("record build: %w", err)
	}
	return rec.ID, nil
}

// List returns up to n builds, newest first. n <= 0 returns all of them.
func (s *Store) List(n int) ([]model.BuildRecord, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := s.db.Query(
		`SELECT id, dir, targets, started_at, duration_ms, total, finished, exit_code, failed, interrupted
		 FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BuildRecord
	for rows.Next() {
		var (
			r                   model.BuildRecord
			targets, startedStr string
			durMs               int64
			failed, interrupted int
		)
		if err := rows.Scan(&r.ID, &r.Dir, &targets, &startedStr, &durMs, &r.Total, &r.Finished,
			&r.ExitCode, &failed, &interrupted); err != nil {
			return nil, err
		}
		r.StartedAt, err = time.Parse(timeLayout, startedStr)
		if err != nil {
			return nil, fmt.Errorf("parse started_at for build %s: %w", r.ID, err)
		}
		if targets != "" {
			r.Targets = strings.Split(targets, "\x1f")
		}
		r.Duration = time.Duration(durMs) * time.Millisecond
		r.Failed = failed != 0
		r.Interrupted = interrupted != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
