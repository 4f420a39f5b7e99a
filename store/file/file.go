// Package file stores checkpoints as one JSON file per thread.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/codex-mohan/autonix/store"
)

// Store writes <dir>/<thread>.json, replacing the file atomically on every put.
type Store struct {
	mu  sync.Mutex
	dir string
}

var _ store.CheckpointStore = (*Store)(nil)

// New creates dir if needed and returns a store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(threadID string) string {
	return filepath.Join(s.dir, url.PathEscape(threadID)+".json")
}

func (s *Store) read(threadID string) ([]*store.Checkpoint, error) {
	data, err := os.ReadFile(s.path(threadID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints: %w", err)
	}
	var list []*store.Checkpoint
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoints: %w", err)
	}
	return list, nil
}

func (s *Store) write(threadID string, list []*store.Checkpoint) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoints: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to write checkpoints: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoints: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoints: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(threadID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoints: %w", err)
	}
	return nil
}

// Put appends checkpoint to its thread file, replacing one with the same ID.
func (s *Store) Put(_ context.Context, checkpoint *store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read(checkpoint.ThreadID)
	if err != nil {
		return err
	}
	replaced := false
	for i, cp := range list {
		if cp.ID == checkpoint.ID {
			list[i] = checkpoint
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, checkpoint)
	}
	return s.write(checkpoint.ThreadID, list)
}

// Get returns the latest checkpoint of threadID.
func (s *Store) Get(_ context.Context, threadID string) (*store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read(threadID)
	if err != nil {
		return nil, err
	}
	latest := store.Latest(list)
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

// List returns the checkpoints of threadID in file order.
func (s *Store) List(_ context.Context, threadID string) ([]*store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read(threadID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*store.Checkpoint{}
	}
	return list, nil
}

// Delete removes the thread file.
func (s *Store) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(threadID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoints: %w", err)
	}
	return nil
}
