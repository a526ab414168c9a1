// Package store persists finished simulation runs to SQLite so recent
// results stay queryable across restarts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	created_at       TIMESTAMP NOT NULL,
	rank             INTEGER NOT NULL,
	confidence       REAL NOT NULL,
	weapon1          TEXT NOT NULL,
	weapon2          TEXT NOT NULL,
	weapon1_win_rate REAL NOT NULL,
	weapon2_win_rate REAL NOT NULL,
	avg_rounds       REAL NOT NULL,
	simulations      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// Run is one persisted simulation result. Weapon columns hold the
// human-readable loadout summary, not the raw request.
type Run struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Rank           int       `json:"rank"`
	Confidence     float64   `json:"confidence"`
	Weapon1        string    `json:"weapon1"`
	Weapon2        string    `json:"weapon2"`
	Weapon1WinRate float64   `json:"weapon1_win_rate"`
	Weapon2WinRate float64   `json:"weapon2_win_rate"`
	AvgRounds      float64   `json:"avg_rounds"`
	Simulations    int       `json:"simulations"`
}

type Store struct {
	db *sql.DB
}

// Open connects to the SQLite file at path, creating it and the schema
// when missing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts the run, assigning an ID and timestamp when unset, and
// returns the stored record.
func (s *Store) SaveRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, rank, confidence, weapon1, weapon2,
			weapon1_win_rate, weapon2_win_rate, avg_rounds, simulations
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Rank, run.Confidence, run.Weapon1, run.Weapon2,
		run.Weapon1WinRate, run.Weapon2WinRate, run.AvgRounds, run.Simulations,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, rank, confidence, weapon1, weapon2,
		       weapon1_win_rate, weapon2_win_rate, avg_rounds, simulations
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.Rank, &r.Confidence, &r.Weapon1, &r.Weapon2,
			&r.Weapon1WinRate, &r.Weapon2WinRate, &r.AvgRounds, &r.Simulations,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
