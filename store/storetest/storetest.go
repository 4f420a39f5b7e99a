// Package storetest holds the behaviour every checkpoint store must share.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/codex-mohan/autonix/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Checkpoint builds a checkpoint for thread at version with a small JSON state.
func Checkpoint(thread string, version int) *store.Checkpoint {
	state, _ := json.Marshal(map[string]any{"thread": thread, "version": version})
	return &store.Checkpoint{
		ID:        thread + "-" + string(rune('a'+version)),
		ThreadID:  thread,
		NodeName:  "chatbot",
		State:     state,
		Metadata:  map[string]any{"step": float64(version)},
		Timestamp: time.Date(2026, 1, 1, 0, 0, version, 0, time.UTC),
		Version:   version,
	}
}

// Run exercises s with put/get/list/delete.
func Run(t *testing.T, s store.CheckpointStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound), "get on empty thread: %v", err)

	list, err := s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, list)

	for v := 1; v <= 3; v++ {
		require.NoError(t, s.Put(ctx, Checkpoint("t1", v)))
	}
	require.NoError(t, s.Put(ctx, Checkpoint("t2", 1)))

	latest, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)
	assert.Equal(t, "t1", latest.ThreadID)
	assert.Equal(t, "chatbot", latest.NodeName)
	assert.JSONEq(t, `{"thread":"t1","version":3}`, string(latest.State))
	assert.Equal(t, float64(3), latest.Metadata["step"])

	list, err = s.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, cp := range list {
		assert.Equal(t, i+1, cp.Version)
	}

	// Same ID replaces.
	replaced := Checkpoint("t1", 3)
	replaced.NodeName = "tools"
	require.NoError(t, s.Put(ctx, replaced))
	latest, err = s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "tools", latest.NodeName)
	list, err = s.List(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, s.Delete(ctx, "t1"))
	_, err = s.Get(ctx, "t1")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	other, err := s.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 1, other.Version)
}
