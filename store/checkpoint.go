package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a thread has no checkpoint.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is the state of one thread after one graph step.
type Checkpoint struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	NodeName string `json:"node_name"`
	// State is the serialized graph state. Stores treat it as opaque.
	State     json.RawMessage `json:"state"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	// Version increases by one per checkpoint within a thread.
	Version int `json:"version"`
}

// CheckpointStore persists checkpoints keyed by thread id.
type CheckpointStore interface {
	// Put stores a checkpoint. A checkpoint with the same ID is replaced.
	Put(ctx context.Context, checkpoint *Checkpoint) error

	// Get returns the latest checkpoint of a thread, or ErrNotFound.
	Get(ctx context.Context, threadID string) (*Checkpoint, error)

	// List returns the checkpoints of a thread, oldest first.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// Delete removes every checkpoint of a thread.
	Delete(ctx context.Context, threadID string) error
}

// Latest returns the checkpoint with the highest version, or nil.
func Latest(checkpoints []*Checkpoint) *Checkpoint {
	var latest *Checkpoint
	for _, cp := range checkpoints {
		if latest == nil || cp.Version > latest.Version ||
			(cp.Version == latest.Version && cp.Timestamp.After(latest.Timestamp)) {
			latest = cp
		}
	}
	return latest
}
