package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codex-mohan/autonix/store"
)

// DefaultTable is the table used when no WithTable option is given.
const DefaultTable = "autonix_checkpoints"

// Store keeps one row per checkpoint in a SQLite file.
type Store struct {
	db    *sql.DB
	table string
}

var _ store.CheckpointStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable overrides DefaultTable.
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

// Open opens or creates the database at path in WAL mode and creates the
// table. ":memory:" gives a private in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite checkpoints: open %s: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY between graph steps.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000"
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id         TEXT PRIMARY KEY,
	thread_id  TEXT NOT NULL,
	version    INTEGER NOT NULL,
	node_name  TEXT NOT NULL,
	state      TEXT NOT NULL,
	metadata   TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_thread_idx ON %[1]s (thread_id, version);`, s.table)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite checkpoints: create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts cp, replacing the row with the same id.
func (s *Store) Put(ctx context.Context, cp *store.Checkpoint) error {
	var metadata sql.NullString
	if len(cp.Metadata) > 0 {
		b, err := json.Marshal(cp.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite checkpoints: encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (id, thread_id, version, node_name, state, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	version = excluded.version,
	node_name = excluded.node_name,
	state = excluded.state,
	metadata = excluded.metadata,
	created_at = excluded.created_at`, s.table),
		cp.ID, cp.ThreadID, cp.Version, cp.NodeName, string(cp.State), metadata, cp.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite checkpoints: put %s: %w", cp.ThreadID, err)
	}
	return nil
}

func scan(row interface{ Scan(...any) error }) (*store.Checkpoint, error) {
	var (
		cp       store.Checkpoint
		state    string
		metadata sql.NullString
		created  int64
	)
	if err := row.Scan(&cp.ID, &cp.ThreadID, &cp.Version, &cp.NodeName, &state, &metadata, &created); err != nil {
		return nil, err
	}
	cp.State = json.RawMessage(state)
	cp.Timestamp = time.Unix(0, created).UTC()
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("checkpoint %s: metadata: %w", cp.ID, err)
		}
	}
	return &cp, nil
}

// Get returns the highest version of threadID.
func (s *Store) Get(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT id, thread_id, version, node_name, state, metadata, created_at
FROM %s WHERE thread_id = ? ORDER BY version DESC, created_at DESC LIMIT 1`, s.table), threadID)

	cp, err := scan(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, store.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("sqlite checkpoints: get %s: %w", threadID, err)
	}
	return cp, nil
}

// List returns every checkpoint of threadID, oldest version first.
func (s *Store) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, thread_id, version, node_name, state, metadata, created_at
FROM %s WHERE thread_id = ? ORDER BY version, created_at`, s.table), threadID)
	if err != nil {
		return nil, fmt.Errorf("sqlite checkpoints: list %s: %w", threadID, err)
	}
	defer rows.Close()

	out := []*store.Checkpoint{}
	for rows.Next() {
		cp, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite checkpoints: list %s: %w", threadID, err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// Delete removes threadID.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE thread_id = ?`, s.table), threadID); err != nil {
		return fmt.Errorf("sqlite checkpoints: delete %s: %w", threadID, err)
	}
	return nil
}
