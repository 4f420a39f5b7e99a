package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codex-mohan/autonix/store"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "autonix:"

// Store keeps each checkpoint under its own key and indexes a thread with
// a sorted set of checkpoint ids scored by version.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ store.CheckpointStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires a thread ttl after its last checkpoint. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New wraps client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Keys of one thread share the {threadID} hash tag so a transaction over
// them stays on one cluster slot.
func (s *Store) checkpointKey(threadID, id string) string {
	return s.prefix + "cp:{" + threadID + "}:" + id
}

func (s *Store) threadKey(threadID string) string {
	return s.prefix + "thread:{" + threadID + "}"
}

// Put writes cp and indexes it. Both keys get the TTL.
func (s *Store) Put(ctx context.Context, cp *store.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("redis checkpoints: encode: %w", err)
	}

	thread := s.threadKey(cp.ThreadID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.checkpointKey(cp.ThreadID, cp.ID), data, s.ttl)
		pipe.ZAdd(ctx, thread, redis.Z{Score: float64(cp.Version), Member: cp.ID})
		if s.ttl > 0 {
			pipe.Expire(ctx, thread, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis checkpoints: put %s: %w", cp.ThreadID, err)
	}
	return nil
}

// Get returns the highest version of threadID.
func (s *Store) Get(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	ids, err := s.client.ZRevRange(ctx, s.threadKey(threadID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis checkpoints: get %s: %w", threadID, err)
	}
	if len(ids) == 0 {
		return nil, store.ErrNotFound
	}

	data, err := s.client.Get(ctx, s.checkpointKey(threadID, ids[0])).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis checkpoints: get %s: %w", threadID, err)
	}
	return decode(data)
}

func decode(data []byte) (*store.Checkpoint, error) {
	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("redis checkpoints: decode: %w", err)
	}
	return &cp, nil
}

// List returns the checkpoints of threadID, oldest version first. Expired
// checkpoint keys are skipped.
func (s *Store) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	ids, err := s.client.ZRange(ctx, s.threadKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis checkpoints: list %s: %w", threadID, err)
	}
	out := []*store.Checkpoint{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.checkpointKey(threadID, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis checkpoints: list %s: %w", threadID, err)
	}
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		cp, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Delete removes threadID and its index.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	thread := s.threadKey(threadID)
	ids, err := s.client.ZRange(ctx, thread, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis checkpoints: delete %s: %w", threadID, err)
	}

	keys := []string{thread}
	for _, id := range ids {
		keys = append(keys, s.checkpointKey(threadID, id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis checkpoints: delete %s: %w", threadID, err)
	}
	return nil
}
