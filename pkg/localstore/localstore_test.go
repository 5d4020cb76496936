package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyOrders)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyOrders, `[{"id":1}]`))
	require.NoError(t, s.Set(ctx, KeyCurrentOrderID, "1"))
	v, ok, err := s.Get(ctx, KeyOrders)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, v)

	require.NoError(t, s.Set(ctx, KeyOrders, `[]`))
	v, _, _ = s.Get(ctx, KeyOrders)
	assert.Equal(t, `[]`, v)

	require.NoError(t, s.Delete(ctx, KeyOrders))
	require.NoError(t, s.Delete(ctx, KeyOrderChanges))
	_, ok, _ = s.Get(ctx, KeyOrders)
	assert.False(t, ok)
	v, ok, _ = s.Get(ctx, KeyCurrentOrderID)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	f, err := OpenFile(path)
	require.NoError(t, err)
	exerciseStore(t, f)

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(context.Background(), KeyCurrentOrderID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestFileRejectsCorruptContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := OpenFile(path)
	assert.Error(t, err)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(cli, "oq:")
	defer s.Close()

	exerciseStore(t, s)
	assert.True(t, mr.Exists("oq:"+KeyCurrentOrderID))
	assert.False(t, mr.Exists(KeyCurrentOrderID))
}
