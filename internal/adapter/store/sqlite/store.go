// Package sqlite persists review sessions and their coverage intervals.
// Hunks are stored by stable id so a session survives independent
// re-parses of the same repository state.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hunktrack/hunktrack/internal/usecase/coverage"
	"github.com/hunktrack/hunktrack/internal/usecase/session"
)

// Store implements the session.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- One row per review session
	CREATE TABLE IF NOT EXISTS sessions (
		session_key TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Hunk identities for each session, keyed by stable id
	CREATE TABLE IF NOT EXISTS hunks (
		session_key TEXT NOT NULL,
		stable_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		hunk_index INTEGER NOT NULL,
		line_count INTEGER NOT NULL,
		PRIMARY KEY (session_key, stable_id),
		FOREIGN KEY (session_key) REFERENCES sessions(session_key) ON DELETE CASCADE
	);

	-- Covered [start,end) intervals per hunk
	CREATE TABLE IF NOT EXISTS coverage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_key TEXT NOT NULL,
		stable_id TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		FOREIGN KEY (session_key) REFERENCES sessions(session_key) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_hunks_session ON hunks(session_key);
	CREATE INDEX IF NOT EXISTS idx_coverage_session ON coverage(session_key, stable_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save persists a session record, replacing any previous state for the
// same key in a single transaction.
func (s *Store) Save(ctx context.Context, rec session.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (session_key, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET updated_at = excluded.updated_at
	`, rec.Key, rec.CreatedAt.Unix(), now); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM hunks WHERE session_key = ?`, rec.Key); err != nil {
		return fmt.Errorf("failed to clear hunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM coverage WHERE session_key = ?`, rec.Key); err != nil {
		return fmt.Errorf("failed to clear coverage: %w", err)
	}

	hunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hunks (session_key, stable_id, filename, hunk_index, line_count)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer hunkStmt.Close()

	for _, h := range rec.Hunks {
		if _, err := hunkStmt.ExecContext(ctx,
			rec.Key, h.StableID, h.Filename, h.HunkIndex, h.LineCount,
		); err != nil {
			return fmt.Errorf("failed to insert hunk: %w", err)
		}
	}

	covStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO coverage (session_key, stable_id, start_line, end_line)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer covStmt.Close()

	for stableID, intervals := range rec.Coverage {
		for _, iv := range intervals {
			if _, err := covStmt.ExecContext(ctx,
				rec.Key, stableID, iv.Start, iv.End,
			); err != nil {
				return fmt.Errorf("failed to insert coverage: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Load retrieves a session record by key. Returns session.ErrNotFound when
// no session exists for the key.
func (s *Store) Load(ctx context.Context, key string) (session.Record, error) {
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM sessions WHERE session_key = ?`, key,
	).Scan(&createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return session.Record{}, fmt.Errorf("session %q: %w", key, session.ErrNotFound)
		}
		return session.Record{}, fmt.Errorf("failed to get session: %w", err)
	}

	rec := session.Record{
		Key:       key,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		Coverage:  make(map[string][]coverage.Interval),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT stable_id, filename, hunk_index, line_count
		FROM hunks
		WHERE session_key = ?
		ORDER BY filename ASC, hunk_index ASC
	`, key)
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to get hunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h session.HunkRecord
		if err := rows.Scan(&h.StableID, &h.Filename, &h.HunkIndex, &h.LineCount); err != nil {
			return session.Record{}, fmt.Errorf("failed to scan hunk: %w", err)
		}
		rec.Hunks = append(rec.Hunks, h)
	}
	if err := rows.Err(); err != nil {
		return session.Record{}, fmt.Errorf("error iterating hunks: %w", err)
	}

	covRows, err := s.db.QueryContext(ctx, `
		SELECT stable_id, start_line, end_line
		FROM coverage
		WHERE session_key = ?
		ORDER BY stable_id ASC, start_line ASC
	`, key)
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to get coverage: %w", err)
	}
	defer covRows.Close()

	for covRows.Next() {
		var stableID string
		var iv coverage.Interval
		if err := covRows.Scan(&stableID, &iv.Start, &iv.End); err != nil {
			return session.Record{}, fmt.Errorf("failed to scan coverage: %w", err)
		}
		rec.Coverage[stableID] = append(rec.Coverage[stableID], iv)
	}
	if err := covRows.Err(); err != nil {
		return session.Record{}, fmt.Errorf("error iterating coverage: %w", err)
	}

	return rec, nil
}

// Delete removes a session and its dependent rows. Deleting a session that
// does not exist is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
