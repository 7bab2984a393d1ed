// Package store persists batch runs to SQLite so past runs can be listed
// and compared without re-reading JSONL artifacts.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"rapport/internal/batch"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	samples    INTEGER NOT NULL,
	errors     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES runs(run_id),
	sample_id      TEXT NOT NULL,
	context_id     TEXT NOT NULL,
	persona_id     TEXT,
	use_case       TEXT NOT NULL,
	user_text      TEXT,
	eng            INTEGER,
	ctx            INTEGER,
	tone           INTEGER,
	clar           INTEGER,
	safe           INTEGER,
	move           INTEGER,
	ocq            REAL,
	safe_violation INTEGER,
	error          TEXT,
	timestamp      TEXT
);

CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// RunStore is a SQLite-backed archive of batch runs.
type RunStore struct {
	db   *sql.DB
	path string
}

// Open initializes the database at path, creating it (and its directory)
// if needed.
func Open(path string) (*RunStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal_mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &RunStore{db: db, path: path}, nil
}

// SaveRun records one run and all of its rows in a single transaction.
func (s *RunStore) SaveRun(runID string, rows []batch.ResultRow) error {
	errCount := 0
	for _, r := range rows {
		if r.IsError() {
			errCount++
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO runs (run_id, created_at, samples, errors) VALUES (?, ?, ?, ?)",
		runID, time.Now().UTC().Format(time.RFC3339), len(rows), errCount,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO results
		(id, run_id, sample_id, context_id, persona_id, use_case, user_text,
		 eng, ctx, tone, clar, safe, move, ocq, safe_violation, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var eng, ctxScore, tone, clar, safe, move, violation any
		var ocq any
		if r.Scores != nil {
			eng, ctxScore, tone = r.Scores.Engagement, r.Scores.ContextRef, r.Scores.Tone
			clar, safe, move = r.Scores.Clarity, r.Scores.Safety, r.Scores.Move
		}
		if r.OCQ != nil {
			ocq = *r.OCQ
		}
		if r.SafeViolation != nil {
			violation = *r.SafeViolation
		}

		if _, err := stmt.Exec(
			uuid.NewString(), runID, r.SampleID, r.ContextID, r.PersonaID,
			r.UseCase, r.UserText,
			eng, ctxScore, tone, clar, safe, move, ocq, violation,
			nullable(r.Error), nullable(r.Timestamp),
		); err != nil {
			return fmt.Errorf("failed to insert result row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunSummary is one row of ListRuns output.
type RunSummary struct {
	RunID     string
	CreatedAt string
	Samples   int
	Errors    int
}

// ListRuns returns recorded runs, newest first.
func (s *RunStore) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query("SELECT run_id, created_at, samples, errors FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.Samples, &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
