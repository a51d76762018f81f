// Package history records alarm firings in a local SQLite database so
// users can see what actually ran, and when, for alarms fired while they
// were away. Recording is best-effort: history failures never change the
// outcome or exit code of a firing.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one alarm firing.
type Record struct {
	ID            int64
	Sequence      string
	ScheduledTime string // "HH:MM" from the native trigger, "" for manual runs
	FiredAt       time.Time
	OneTime       bool
	ActionsTotal  int
	ActionsOK     int
	Outcome       string // "ok", "partial", "sequence-not-found"
}

// Store is the fire-history database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS firings (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence       TEXT NOT NULL,
	scheduled_time TEXT NOT NULL DEFAULT '',
	fired_at       INTEGER NOT NULL,
	one_time       INTEGER NOT NULL DEFAULT 0,
	actions_total  INTEGER NOT NULL DEFAULT 0,
	actions_ok     INTEGER NOT NULL DEFAULT 0,
	outcome        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_firings_fired_at ON firings(fired_at);
`

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts a firing record.
func (s *Store) Append(r Record) error {
	_, err := s.db.Exec(`
		INSERT INTO firings (sequence, scheduled_time, fired_at, one_time, actions_total, actions_ok, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Sequence, r.ScheduledTime, r.FiredAt.Unix(),
		boolInt(r.OneTime), r.ActionsTotal, r.ActionsOK, r.Outcome,
	)
	if err != nil {
		return fmt.Errorf("failed to record firing: %w", err)
	}
	return nil
}

// Recent returns the latest n firings, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, sequence, scheduled_time, fired_at, one_time, actions_total, actions_ok, outcome
		FROM firings ORDER BY fired_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			firedAt int64
			oneTime int
		)
		if err := rows.Scan(&r.ID, &r.Sequence, &r.ScheduledTime, &firedAt,
			&oneTime, &r.ActionsTotal, &r.ActionsOK, &r.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.FiredAt = time.Unix(firedAt, 0)
		r.OneTime = oneTime != 0
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
