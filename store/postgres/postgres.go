package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codex-mohan/autonix/store"
)

// DefaultTable is the table used when no WithTable option is given.
const DefaultTable = "autonix_checkpoints"

// DBPool is the subset of *pgxpool.Pool the store needs.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store keeps one row per checkpoint.
type Store struct {
	pool  DBPool
	table string
}

var _ store.CheckpointStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable overrides DefaultTable. The name is interpolated into SQL and
// must come from configuration, never from a request.
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

// New connects a pool to connString. Call InitSchema before first use.
func New(ctx context.Context, connString string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres checkpoints: connect: %w", err)
	}
	return NewWithPool(pool, opts...), nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool DBPool, opts ...Option) *Store {
	s := &Store{pool: pool, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitSchema creates the table and its thread index.
func (s *Store) InitSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id         TEXT PRIMARY KEY,
	thread_id  TEXT NOT NULL,
	version    INTEGER NOT NULL,
	node_name  TEXT NOT NULL,
	state      JSONB NOT NULL,
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[1]s_thread_idx ON %[1]s (thread_id, version DESC);`, s.table)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres checkpoints: create schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

const selectColumns = "id, thread_id, version, node_name, state, metadata, created_at"

// Put inserts cp, replacing the row with the same id.
func (s *Store) Put(ctx context.Context, cp *store.Checkpoint) error {
	var metadata []byte
	if len(cp.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(cp.Metadata); err != nil {
			return fmt.Errorf("postgres checkpoints: encode metadata: %w", err)
		}
	}

	sql := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	version = EXCLUDED.version,
	node_name = EXCLUDED.node_name,
	state = EXCLUDED.state,
	metadata = EXCLUDED.metadata,
	created_at = EXCLUDED.created_at`, s.table, selectColumns)

	_, err := s.pool.Exec(ctx, sql,
		cp.ID, cp.ThreadID, cp.Version, cp.NodeName, []byte(cp.State), metadata, cp.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres checkpoints: put %s: %w", cp.ThreadID, err)
	}
	return nil
}

func scan(row pgx.Row) (*store.Checkpoint, error) {
	var (
		cp       store.Checkpoint
		state    []byte
		metadata []byte
	)
	if err := row.Scan(&cp.ID, &cp.ThreadID, &cp.Version, &cp.NodeName, &state, &metadata, &cp.Timestamp); err != nil {
		return nil, err
	}
	if !json.Valid(state) {
		return nil, fmt.Errorf("checkpoint %s: state is not valid JSON", cp.ID)
	}
	cp.State = json.RawMessage(state)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("checkpoint %s: metadata: %w", cp.ID, err)
		}
	}
	return &cp, nil
}

// Get returns the highest version of threadID.
func (s *Store) Get(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE thread_id = $1 ORDER BY version DESC, created_at DESC LIMIT 1`,
		selectColumns, s.table)

	cp, err := scan(s.pool.QueryRow(ctx, sql, threadID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, store.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("postgres checkpoints: get %s: %w", threadID, err)
	}
	return cp, nil
}

// List returns every checkpoint of threadID, oldest version first.
func (s *Store) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE thread_id = $1 ORDER BY version, created_at`,
		selectColumns, s.table)

	rows, err := s.pool.Query(ctx, sql, threadID)
	if err != nil {
		return nil, fmt.Errorf("postgres checkpoints: list %s: %w", threadID, err)
	}
	defer rows.Close()

	out := []*store.Checkpoint{}
	for rows.Next() {
		cp, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres checkpoints: list %s: %w", threadID, err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres checkpoints: list %s: %w", threadID, err)
	}
	return out, nil
}

// Delete removes threadID.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE thread_id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, sql, threadID); err != nil {
		return fmt.Errorf("postgres checkpoints: delete %s: %w", threadID, err)
	}
	return nil
}
