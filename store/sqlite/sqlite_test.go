package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-mohan/autonix/store/storetest"
)

func TestStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cp.db"))
	require.NoError(t, err)
	defer s.Close()

	storetest.Run(t, s)
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	storetest.Run(t, s)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.db")
	ctx := context.Background()

	s, err := Open(path, WithTable("threads"))
	require.NoError(t, err)
	want := storetest.Checkpoint("t", 1)
	require.NoError(t, s.Put(ctx, want))
	require.NoError(t, s.Close())

	s, err = Open(path, WithTable("threads"))
	require.NoError(t, err)
	defer s.Close()

	cp, err := s.Get(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "t-b", cp.ID)
	assert.True(t, want.Timestamp.Equal(cp.Timestamp))
}
