package score

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/yaa/config"
)

// TestInsertOrder verifies descending score order with ties broken by name descending
func TestInsertOrder(t *testing.T) {
	var list []Entry
	list = Insert(list, Entry{10, "bob"}, 0)
	list = Insert(list, Entry{30, "amy"}, 0)
	list = Insert(list, Entry{10, "zed"}, 0)
	list = Insert(list, Entry{20, "kim"}, 0)

	assert.Equal(t, []Entry{{30, "amy"}, {20, "kim"}, {10, "zed"}, {10, "bob"}}, list)

	list = Insert(list, Entry{5, "low"}, 4)
	assert.Len(t, list, 4)
	assert.Equal(t, Entry{10, "bob"}, list[3])
}

// TestQualifies verifies the cut-off of a full list
func TestQualifies(t *testing.T) {
	list := []Entry{{30, "a"}, {20, "b"}}
	assert.True(t, Qualifies(list, 1, 3))
	assert.True(t, Qualifies(list, 21, 2))
	assert.False(t, Qualifies(list, 20, 2))
}

// TestFileStoreMissingFile verifies a missing file loads as an empty list
func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "none.json"), 0)

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	top, err := s.Top(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

// TestFileStoreRoundTrip verifies entries persist across store instances and the size cap holds
func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scores", "high.json")
	s := NewFileStore(path, 3)

	require.NoError(t, s.Add(ctx, 100, "ann"))
	require.NoError(t, s.Add(ctx, 300, "cy"))
	require.NoError(t, s.Add(ctx, 200, "bo"))
	require.NoError(t, s.Add(ctx, 50, "dee"))

	reopened := NewFileStore(path, 3)
	top, err := reopened.Top(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{300, "cy"}, {200, "bo"}, {100, "ann"}}, top)

	top, err = reopened.Top(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{300, "cy"}}, top)
}

// TestFileStoreRejects verifies empty names and corrupt files are reported
func TestFileStoreRejects(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "high.json")
	s := NewFileStore(path, 3)

	assert.True(t, eris.Is(s.Add(ctx, 1, "  "), ErrEmptyName))

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := s.Load()
	assert.Error(t, err)
}

func newRedisStore(t *testing.T, size int) *RedisStore {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:     srv.Addr(),
		Password: "", // no password set
		DB:       0,  // use default DB
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "yaa:test:scores", size)
}

// TestRedisStoreOrder verifies sorted set reads follow the list order, duplicates included
func TestRedisStoreOrder(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t, 10)

	empty, err := s.Top(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Add(ctx, 10, "bob"))
	require.NoError(t, s.Add(ctx, 10, "bob"))
	require.NoError(t, s.Add(ctx, 10, "zed"))
	require.NoError(t, s.Add(ctx, 40, "amy"))

	top, err := s.Top(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{40, "amy"}, {10, "zed"}, {10, "bob"}, {10, "bob"}}, top)

	top, err = s.Top(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{40, "amy"}, {10, "zed"}}, top)
}

// TestRedisStoreTrim verifies only the best entries are kept
func TestRedisStoreTrim(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t, 2)

	require.NoError(t, s.Add(ctx, 1, "a"))
	require.NoError(t, s.Add(ctx, 3, "c"))
	require.NoError(t, s.Add(ctx, 2, "b"))
	assert.True(t, eris.Is(s.Add(ctx, 9, ""), ErrEmptyName))

	n, err := s.Client.ZCard(ctx, s.Key()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	top, err := s.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{3, "c"}, {2, "b"}}, top)
}

// TestOpen verifies the configured backend is selected
func TestOpen(t *testing.T) {
	srv := miniredis.RunT(t)

	s, closeFn, err := Open(config.ScoreConfig{Backend: config.BackendRedis, RedisAddr: srv.Addr(), RedisKey: "k", Size: 3})
	require.NoError(t, err)
	require.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Add(context.Background(), 7, "rae"))
	assert.True(t, srv.Exists("k"))
	require.NoError(t, closeFn())

	s, closeFn, err = Open(config.ScoreConfig{Backend: config.BackendFile, Path: filepath.Join(t.TempDir(), "s.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, closeFn())

	_, _, err = Open(config.ScoreConfig{Backend: "floppy"})
	assert.Error(t, err)
}
