package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codex-mohan/autonix/state"
)

// DBPool is the subset of *pgxpool.Pool the store uses.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists conversation trees.
type Store struct {
	pool  DBPool
	newID func() string
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces uuid.NewString for new rows.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) {
		s.newID = f
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(f func() time.Time) Option {
	return func(s *Store) {
		s.now = f
	}
}

// NewStore wraps an existing pool.
func NewStore(pool DBPool, opts ...Option) *Store {
	s := &Store{
		pool:  pool,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to connString and creates the schema.
func Open(ctx context.Context, connString string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	s := NewStore(pool, opts...)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		active_leaf_id TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS conversations_user_idx ON conversations (user_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
		parent_id TEXT REFERENCES messages (id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		content TEXT,
		tool_calls JSONB,
		tool_result JSONB,
		node_name TEXT,
		step INTEGER,
		checkpoint JSONB,
		branch_index INTEGER NOT NULL DEFAULT 0,
		depth INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id);
	CREATE INDEX IF NOT EXISTS messages_parent_idx ON messages (parent_id);
	CREATE INDEX IF NOT EXISTS messages_conversation_depth_idx ON messages (conversation_id, depth);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
		source_id TEXT NOT NULL REFERENCES messages (id) ON DELETE CASCADE,
		target_id TEXT NOT NULL REFERENCES messages (id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS edges_conversation_idx ON edges (conversation_id);

	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
		message_id TEXT NOT NULL REFERENCES messages (id) ON DELETE CASCADE,
		name TEXT,
		snapshot JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS snapshots_conversation_idx ON snapshots (conversation_id);
`

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const conversationColumns = `id, user_id, COALESCE(title, ''), COALESCE(active_leaf_id, ''), created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.ActiveLeafID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the conversations of userID, most recently updated first.
// A limit of zero or less means DefaultListLimit.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return out, nil
}

// Get returns one conversation, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return c, nil
}

// Create starts an empty conversation. An empty title becomes DefaultTitle.
func (s *Store) Create(ctx context.Context, userID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	now := s.now()
	c := &Conversation{ID: s.newID(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		c.ID, c.UserID, c.Title, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return c, nil
}

// UpdateTitle renames a conversation.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET title = $2, updated_at = $3 WHERE id = $1`, id, title, s.now())
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Delete removes a conversation with its messages, edges and snapshots.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

const messageColumns = `id, conversation_id, COALESCE(parent_id, ''), type, COALESCE(content, ''),
	tool_calls, tool_result, COALESCE(node_name, ''), COALESCE(step, 0), checkpoint,
	branch_index, depth, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	var typ string
	var toolCalls, toolResult, checkpoint []byte
	if err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.ParentID,
		&typ,
		&m.Content,
		&toolCalls,
		&toolResult,
		&m.NodeName,
		&m.Step,
		&checkpoint,
		&m.BranchIndex,
		&m.Depth,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.Type = state.Role(typ)
	if len(toolCalls) > 0 {
		if err := json.Unmarshal(toolCalls, &m.ToolCalls); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
		}
	}
	m.ToolResult = rawJSON(toolResult)
	m.Checkpoint = rawJSON(checkpoint)
	return &m, nil
}

func (s *Store) queryMessages(ctx context.Context, sql string, args ...any) ([]Message, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return out, nil
}

// Messages returns every message of a conversation, oldest first.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`,
		conversationID)
}

// AddMessage appends a message under nm.ParentID and makes it the active
// leaf. Its depth is one more than the parent's and its branch index is the
// number of siblings before it.
func (s *Store) AddMessage(ctx context.Context, nm NewMessage) (*Message, error) {
	if !nm.Type.Valid() {
		return nil, fmt.Errorf("invalid message type %q", nm.Type)
	}
	toolCalls, err := encodeJSON(nm.ToolCalls)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool calls: %w", err)
	}

	m := &Message{
		ID:             s.newID(),
		ConversationID: nm.ConversationID,
		ParentID:       nm.ParentID,
		Type:           nm.Type,
		Content:        nm.Content,
		ToolCalls:      nm.ToolCalls,
		ToolResult:     rawJSON(nm.ToolResult),
		NodeName:       nm.NodeName,
		Step:           nm.Step,
		Checkpoint:     rawJSON(nm.Checkpoint),
		CreatedAt:      s.now(),
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if m.ParentID != "" {
			err := tx.QueryRow(ctx,
				`SELECT depth FROM messages WHERE id = $1 AND conversation_id = $2`,
				m.ParentID, m.ConversationID).Scan(&m.Depth)
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: parent %s", ErrMessageNotFound, m.ParentID)
			}
			if err != nil {
				return fmt.Errorf("failed to load parent: %w", err)
			}
			m.Depth++
		}

		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND parent_id IS NOT DISTINCT FROM $2`,
			m.ConversationID, nullable(m.ParentID)).Scan(&m.BranchIndex)
		if err != nil {
			return fmt.Errorf("failed to count siblings: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, parent_id, type, content, tool_calls, tool_result,
				node_name, step, checkpoint, branch_index, depth, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			m.ID, m.ConversationID, nullable(m.ParentID), string(m.Type), m.Content, toolCalls,
			rawArg(m.ToolResult), nullable(m.NodeName), m.Step, rawArg(m.Checkpoint),
			m.BranchIndex, m.Depth, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE conversations SET active_leaf_id = $2, updated_at = $3 WHERE id = $1`,
			m.ConversationID, m.ID, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to update active leaf: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, m.ConversationID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MessagePath returns the messages from the root to leafID, root first. An
// empty leafID means the conversation's active leaf; a conversation without
// one yields its root messages.
func (s *Store) MessagePath(ctx context.Context, conversationID, leafID string) ([]Message, error) {
	if leafID == "" {
		c, err := s.Get(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		leafID = c.ActiveLeafID
	}

	all, err := s.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if leafID == "" {
		roots := []Message{}
		for _, m := range all {
			if m.ParentID == "" {
				roots = append(roots, m)
			}
		}
		return roots, nil
	}

	byID := make(map[string]Message, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	path := []Message{}
	for id := leafID; id != ""; {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
		}
		if len(path) == len(all) {
			return nil, fmt.Errorf("parent links of %s form a cycle", leafID)
		}
		path = append(path, m)
		id = m.ParentID
	}
	slices.Reverse(path)
	return path, nil
}

// SwitchBranch makes messageID the active leaf of the conversation.
func (s *Store) SwitchBranch(ctx context.Context, conversationID, messageID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET active_leaf_id = $2, updated_at = $3
		WHERE id = $1 AND EXISTS (SELECT 1 FROM messages WHERE id = $2 AND conversation_id = $1)`,
		conversationID, messageID, s.now())
	if err != nil {
		return fmt.Errorf("failed to switch branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s in %s", ErrMessageNotFound, messageID, conversationID)
	}
	return nil
}

// Branches returns the children of parentID ordered by branch index.
func (s *Store) Branches(ctx context.Context, parentID string) ([]Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE parent_id = $1 ORDER BY branch_index ASC`,
		parentID)
}

// AddEdge records a relation between two messages. An empty type is EdgeDefault.
func (s *Store) AddEdge(ctx context.Context, conversationID, source, target string, typ EdgeType, metadata map[string]any) (*Edge, error) {
	if typ == "" {
		typ = EdgeDefault
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("invalid edge type %q", typ)
	}
	meta, err := encodeJSON(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	e := &Edge{
		ID:             s.newID(),
		ConversationID: conversationID,
		Source:         source,
		Target:         target,
		Type:           typ,
		Metadata:       metadata,
		CreatedAt:      s.now(),
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO edges (id, conversation_id, source_id, target_id, type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ConversationID, e.Source, e.Target, string(e.Type), meta, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create edge: %w", err)
	}
	return e, nil
}

// Edges returns every edge of a conversation.
func (s *Store) Edges(ctx context.Context, conversationID string) ([]Edge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, source_id, target_id, type, metadata, created_at
		FROM edges WHERE conversation_id = $1 ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	out := []Edge{}
	for rows.Next() {
		var e Edge
		var typ string
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Source, &e.Target, &typ, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Type = EdgeType(typ)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal edge metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}
	return out, nil
}

// Graph returns the whole tree of a conversation.
func (s *Store) Graph(ctx context.Context, conversationID string) (*Tree, error) {
	messages, err := s.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	edges, err := s.Edges(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &Tree{Messages: messages, Edges: edges}, nil
}

// CreateSnapshot stores data as a rewind point at messageID.
func (s *Store) CreateSnapshot(ctx context.Context, conversationID, messageID, name string, data json.RawMessage) (*Snapshot, error) {
	if !json.Valid(data) {
		return nil, errors.New("snapshot state is not valid JSON")
	}
	snap := &Snapshot{
		ID:             s.newID(),
		ConversationID: conversationID,
		MessageID:      messageID,
		Name:           name,
		State:          data,
		CreatedAt:      s.now(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO snapshots (id, conversation_id, message_id, name, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.ID, snap.ConversationID, snap.MessageID, nullable(snap.Name), []byte(snap.State), snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	return snap, nil
}

// Snapshots returns the snapshots of a conversation, newest first.
func (s *Store) Snapshots(ctx context.Context, conversationID string) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, message_id, COALESCE(name, ''), snapshot, created_at
		FROM snapshots WHERE conversation_id = $1 ORDER BY created_at DESC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		var data []byte
		if err := rows.Scan(&snap.ID, &snap.ConversationID, &snap.MessageID, &snap.Name, &data, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.State = rawJSON(data)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return out, nil
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nullable maps "" to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// encodeJSON marshals v, mapping empty values to SQL NULL.
func encodeJSON[T any](v T) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	switch string(data) {
	case "null", "[]", "{}":
		return nil, nil
	}
	return data, nil
}

func rawArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func rawJSON(data []byte) json.RawMessage {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.RawMessage(data)
}
