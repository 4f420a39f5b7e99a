package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/codex-mohan/autonix/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "checkpoints"))
	require.NoError(t, err)
	storetest.Run(t, s)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, storetest.Checkpoint("thread/with spaces", 1)))

	second, err := New(dir)
	require.NoError(t, err)
	cp, err := second.Get(ctx, "thread/with spaces")
	require.NoError(t, err)
	assert.Equal(t, 1, cp.Version)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "thread%2Fwith%20spaces.json", entries[0].Name())
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))

	_, err = s.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal checkpoints")
}
