package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codex-mohan/autonix/store"
)

// restore builds the state a run starts from: the schema's initial value, or
// the latest checkpoint of the thread, with the input merged on top.
func (r *StateRunnable[S]) restore(ctx context.Context, input S, config *Config) (S, int, error) {
	var base S
	hasBase := false
	if r.graph.Schema != nil {
		base = r.graph.Schema.Init()
		hasBase = true
	}

	version := 0
	if r.checkpointer != nil && config.ThreadID != "" {
		cp, err := r.checkpointer.Get(ctx, config.ThreadID)
		switch {
		case err == nil:
			restored, err := decode[S](cp)
			if err != nil {
				return input, 0, err
			}
			base, hasBase = restored, true
			version = cp.Version
		case errors.Is(err, store.ErrNotFound):
		default:
			return input, 0, fmt.Errorf("failed to load checkpoint for thread %s: %w", config.ThreadID, err)
		}
	}

	if !hasBase {
		return input, version, nil
	}
	state, err := r.merge(base, input)
	if err != nil {
		return input, 0, fmt.Errorf("failed to merge input: %w", err)
	}
	return state, version, nil
}

func (r *StateRunnable[S]) save(ctx context.Context, threadID, node, next string, state S, version int) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state after node %s: %w", node, err)
	}

	cp := &store.Checkpoint{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		NodeName:  node,
		State:     data,
		Metadata:  map[string]any{"next": next},
		Timestamp: time.Now().UTC(),
		Version:   version,
	}
	if err := r.checkpointer.Put(ctx, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint after node %s: %w", node, err)
	}
	return nil
}

// GetState returns the latest checkpointed state of a thread.
func (r *StateRunnable[S]) GetState(ctx context.Context, threadID string) (S, error) {
	var zero S
	if r.checkpointer == nil {
		return zero, errors.New("no checkpointer configured")
	}
	cp, err := r.checkpointer.Get(ctx, threadID)
	if err != nil {
		return zero, err
	}
	return decode[S](cp)
}

// History returns every checkpoint of a thread, oldest first.
func (r *StateRunnable[S]) History(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	if r.checkpointer == nil {
		return nil, errors.New("no checkpointer configured")
	}
	return r.checkpointer.List(ctx, threadID)
}

func decode[S any](cp *store.Checkpoint) (S, error) {
	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return state, fmt.Errorf("failed to decode checkpoint %s: %w", cp.ID, err)
	}
	return state, nil
}
