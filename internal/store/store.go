// Package store persists questionnaire sessions in SQLite.
//
// Each session row holds the latest state snapshot and a version number.
// Every change goes through Update, which reads, transforms and writes the
// snapshot in one transaction and appends a row to the session's event log,
// so updates to a session apply atomically and in submission order.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pieme/nzpoints/internal/questionnaire"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("store: session not found")

// ErrConflict is returned when a session changed underneath an update.
var ErrConflict = errors.New("store: concurrent update")

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".nzpoints")}
}

// Session is a stored questionnaire session.
type Session struct {
	ID        string              `json:"id"`
	Version   int                 `json:"version"`
	State     questionnaire.State `json:"state"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Summary is a session listing entry.
type Summary struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	IsFinal   bool      `json:"isFinal"`
	History   int       `json:"history"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event is one applied change in a session's log.
type Event struct {
	Version int       `json:"version"`
	Action  string    `json:"action"`
	At      time.Time `json:"at"`
}

// Store is the SQLite-backed session store. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
	// mu serialises writers so read-modify-write transactions never race
	// for SQLite's write lock.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens (creating if needed) the session database under cfg.DataDir.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "sessions.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			version    INTEGER NOT NULL,
			state      TEXT    NOT NULL,
			created_at TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_events (
			session_id TEXT    NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			version    INTEGER NOT NULL,
			action     TEXT    NOT NULL,
			at         TEXT    NOT NULL,
			PRIMARY KEY (session_id, version)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

// Create stores a new session holding state.
func (s *Store) Create(ctx context.Context, state questionnaire.State) (*Session, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("store.Create: encode state: %w", err)
	}
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store.Create: %w", err)
	}
	defer tx.Rollback()

	at := s.stamp()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, version, state, created_at, updated_at) VALUES (?, 1, ?, ?, ?)`,
		id, string(data), at, at,
	); err != nil {
		return nil, fmt.Errorf("store.Create: %w", err)
	}
	if err := appendEvent(ctx, tx, id, 1, "create", at); err != nil {
		return nil, fmt.Errorf("store.Create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store.Create: commit: %w", err)
	}
	return s.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess             Session
		data             string
		created, updated string
	)
	if err := row.Scan(&sess.ID, &sess.Version, &data, &created, &updated); err != nil {
		return nil, err
	}
	st, err := questionnaire.ParseState([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode state of %s: %w", sess.ID, err)
	}
	sess.State = st
	if sess.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("created_at of %s: %w", sess.ID, err)
	}
	if sess.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("updated_at of %s: %w", sess.ID, err)
	}
	return &sess, nil
}

const selectSession = `SELECT id, version, state, created_at, updated_at FROM sessions WHERE id = ?`

// Get returns the session with id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, selectSession, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store.Get: %w", err)
	}
	return sess, nil
}

// Update applies fn to the session's current state and stores the result
// as the next version, recording action in the event log. If fn returns
// an error nothing is written and the error is returned unwrapped.
func (s *Store) Update(ctx context.Context, id, action string, fn func(questionnaire.State) (questionnaire.State, error)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store.Update: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanSession(tx.QueryRowContext(ctx, selectSession, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store.Update: %w", err)
	}

	next, err := fn(cur.State)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("store.Update: encode state: %w", err)
	}

	at := s.stamp()
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET version = version + 1, state = ?, updated_at = ? WHERE id = ? AND version = ?`,
		string(data), at, id, cur.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("store.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, ErrConflict
	}
	if err := appendEvent(ctx, tx, id, cur.Version+1, action, at); err != nil {
		return nil, fmt.Errorf("store.Update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store.Update: commit: %w", err)
	}

	cur.Version++
	cur.State = next
	cur.UpdatedAt, _ = time.Parse(timeLayout, at)
	return cur, nil
}

func appendEvent(ctx context.Context, tx *sql.Tx, id string, version int, action, at string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO session_events (session_id, version, action, at) VALUES (?, ?, ?, ?)`,
		id, version, action, at,
	)
	return err
}

// Delete removes a session and its event log.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the most recently updated sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, state, created_at, updated_at FROM sessions ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store.List: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("store.List: %w", err)
		}
		out = append(out, Summary{
			ID:        sess.ID,
			Version:   sess.Version,
			IsFinal:   sess.State.IsFinal,
			History:   len(sess.State.History),
			UpdatedAt: sess.UpdatedAt,
		})
	}
	return out, rows.Err()
}

// Events returns the session's event log in version order.
func (s *Store) Events(ctx context.Context, id string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, action, at FROM session_events WHERE session_id = ? ORDER BY version`, id)
	if err != nil {
		return nil, fmt.Errorf("store.Events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev Event
			at string
		)
		if err := rows.Scan(&ev.Version, &ev.Action, &at); err != nil {
			return nil, fmt.Errorf("store.Events: %w", err)
		}
		if ev.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("store.Events: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}
