package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcome records how a broadcast cycle ended.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeTimedOut    Outcome = "timed_out"
	OutcomeFailed      Outcome = "failed"
	OutcomeInterrupted Outcome = "interrupted"
)

// Cycle is one broadcast cycle from activation through teardown.
type Cycle struct {
	ID          string
	BroadcastID string
	IngestID    string
	Mode        string
	Title       string
	Activation  time.Time
	Deadline    time.Time
	StartedAt   time.Time
	EndedAt     *time.Time
	Outcome     Outcome
	Restarts    int
	Recoveries  int
	Error       string
}

// Store persists the cycle journal in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the journal database at path, creating it and its
// parent directory as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
    id TEXT PRIMARY KEY,
    broadcast_id TEXT NOT NULL,
    ingest_id TEXT,
    mode TEXT NOT NULL,
    title TEXT,
    activation TEXT NOT NULL,
    deadline TEXT NOT NULL,
    started_at TEXT NOT NULL,
    ended_at TEXT,
    outcome TEXT,
    restarts INTEGER NOT NULL DEFAULT 0,
    recoveries INTEGER NOT NULL DEFAULT 0,
    error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply journal schema: %w", err)
	}
	return nil
}

// RecordStart inserts a new cycle row and returns its generated id.
func (s *Store) RecordStart(ctx context.Context, cycle Cycle) (string, error) {
	id := cycle.ID
	if id == "" {
		id = uuid.NewString()
	}
	started := cycle.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO cycles (
            id, broadcast_id, ingest_id, mode, title,
            activation, deadline, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		cycle.BroadcastID,
		nullableString(cycle.IngestID),
		cycle.Mode,
		nullableString(cycle.Title),
		cycle.Activation.UTC().Format(time.RFC3339Nano),
		cycle.Deadline.UTC().Format(time.RFC3339Nano),
		started.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert cycle: %w", err)
	}
	return id, nil
}

// RecordEnd closes out a cycle with its outcome and counters.
func (s *Store) RecordEnd(ctx context.Context, id string, outcome Outcome, restarts, recoveries int, errMessage string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE cycles
         SET ended_at = ?, outcome = ?, restarts = ?, recoveries = ?, error_message = ?
         WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		string(outcome),
		restarts,
		recoveries,
		nullableString(errMessage),
		id,
	)
	if err != nil {
		return fmt.Errorf("close cycle: %w", err)
	}
	return nil
}

// GetByID fetches a single cycle, or nil when none matches.
func (s *Store) GetByID(ctx context.Context, id string) (*Cycle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, id)
	cycle, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	return cycle, nil
}

// Recent returns the most recently started cycles, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Cycle, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+cycleColumns+` FROM cycles ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}

const cycleColumns = "id, broadcast_id, ingest_id, mode, title, activation, deadline, started_at, ended_at, outcome, restarts, recoveries, error_message"

func scanCycle(scanner interface{ Scan(dest ...any) error }) (*Cycle, error) {
	var (
		id          string
		broadcastID string
		ingestID    sql.NullString
		mode        string
		title       sql.NullString
		activation  string
		deadline    string
		startedAt   string
		endedAt     sql.NullString
		outcome     sql.NullString
		restarts    int
		recoveries  int
		errMessage  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&broadcastID,
		&ingestID,
		&mode,
		&title,
		&activation,
		&deadline,
		&startedAt,
		&endedAt,
		&outcome,
		&restarts,
		&recoveries,
		&errMessage,
	); err != nil {
		return nil, err
	}

	cycle := &Cycle{
		ID:          id,
		BroadcastID: broadcastID,
		IngestID:    ingestID.String,
		Mode:        mode,
		Title:       title.String,
		Outcome:     Outcome(outcome.String),
		Restarts:    restarts,
		Recoveries:  recoveries,
		Error:       errMessage.String,
	}
	if t, err := parseTimeString(activation); err == nil {
		cycle.Activation = t
	}
	if t, err := parseTimeString(deadline); err == nil {
		cycle.Deadline = t
	}
	if t, err := parseTimeString(startedAt); err == nil {
		cycle.StartedAt = t
	}
	if endedAt.Valid {
		if t, err := parseTimeString(endedAt.String); err == nil {
			cycle.EndedAt = &t
		}
	}
	return cycle, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
