package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-mohan/autonix/store/storetest"
)

func newStore(t *testing.T, opts ...Option) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), opts...)
	t.Cleanup(func() { s.Close() })
	return mr, s
}

func TestStore(t *testing.T) {
	_, s := newStore(t)
	storetest.Run(t, s)
}

func TestStore_Keys(t *testing.T) {
	mr, s := newStore(t, WithPrefix("test:"))

	require.NoError(t, s.Put(context.Background(), storetest.Checkpoint("t1", 1)))

	assert.True(t, mr.Exists("test:cp:{t1}:t1-b"))
	assert.True(t, mr.Exists("test:thread:{t1}"))

	require.NoError(t, s.Delete(context.Background(), "t1"))
	assert.Empty(t, mr.Keys())
}

func TestStore_KeysShareHashTag(t *testing.T) {
	_, s := newStore(t)

	for _, key := range []string{s.checkpointKey("t1", "t1-a"), s.checkpointKey("t1", "t1-b"), s.threadKey("t1")} {
		open := strings.Index(key, "{")
		end := strings.Index(key, "}")
		require.True(t, open >= 0 && end > open, key)
		assert.Equal(t, "t1", key[open+1:end], key)
	}
}

func TestStore_TTL(t *testing.T) {
	mr, s := newStore(t, WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, storetest.Checkpoint("t1", 1)))
	require.NoError(t, s.Put(ctx, storetest.Checkpoint("t1", 2)))
	assert.Equal(t, time.Minute, mr.TTL("autonix:cp:{t1}:t1-b"))
	assert.Equal(t, time.Minute, mr.TTL("autonix:thread:{t1}"))

	mr.Del("autonix:cp:{t1}:t1-b")
	list, err := s.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Version)

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, "t1")
	assert.Error(t, err)
}
