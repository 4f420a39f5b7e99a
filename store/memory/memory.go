// Package memory provides an in-process checkpoint store.
package memory

import (
	"context"
	"sync"

	"github.com/codex-mohan/autonix/store"
)

// Store keeps checkpoints in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	threads map[string][]*store.Checkpoint
}

var _ store.CheckpointStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{threads: make(map[string][]*store.Checkpoint)}
}

// Put stores a copy of checkpoint.
func (s *Store) Put(_ context.Context, checkpoint *store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *checkpoint
	list := s.threads[cp.ThreadID]
	for i, existing := range list {
		if existing.ID == cp.ID {
			list[i] = &cp
			return nil
		}
	}
	s.threads[cp.ThreadID] = append(list, &cp)
	return nil
}

// Get returns the latest checkpoint of threadID.
func (s *Store) Get(_ context.Context, threadID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := store.Latest(s.threads[threadID])
	if latest == nil {
		return nil, store.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// List returns the checkpoints of threadID in insertion order.
func (s *Store) List(_ context.Context, threadID string) ([]*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.threads[threadID]
	out := make([]*store.Checkpoint, 0, len(list))
	for _, cp := range list {
		c := *cp
		out = append(out, &c)
	}
	return out, nil
}

// Delete drops every checkpoint of threadID.
func (s *Store) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}
