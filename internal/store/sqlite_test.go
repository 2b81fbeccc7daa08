package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/repowatch/internal/store"
	"github.com/nhle/repowatch/tests/testutil"
)

func TestSQLiteStoreGetSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	got, err := s.Get(ctx, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Set(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}))
	require.NoError(t, s.Set(ctx, map[string][]byte{"a": []byte("3")}))

	got, err = s.Get(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("3"), "b": []byte("2")}, got)
}

func TestSQLiteStoreEmptyCalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, s.Set(ctx, nil))
}

func TestSQLiteStoreMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string][]byte{"k": []byte("v")}))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got["k"])
}

func TestSQLiteCompareAndSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	ok, err := s.CompareAndSet(ctx, "v", nil, map[string][]byte{"v": []byte("1"), "a": []byte("x")})
	require.NoError(t, err)
	require.True(t, ok)

	// guard already present
	ok, err = s.CompareAndSet(ctx, "v", nil, map[string][]byte{"v": []byte("2"), "a": []byte("y")})
	require.NoError(t, err)
	assert.False(t, ok)

	// wrong expected value
	ok, err = s.CompareAndSet(ctx, "v", []byte("0"), map[string][]byte{"v": []byte("2"), "a": []byte("y")})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Get(ctx, "v", "a")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"v": []byte("1"), "a": []byte("x")}, got)

	ok, err = s.CompareAndSet(ctx, "v", []byte("1"), map[string][]byte{"v": []byte("2"), "a": []byte("y")})
	require.NoError(t, err)
	require.True(t, ok)

	got, err = s.Get(ctx, "v", "a")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"v": []byte("2"), "a": []byte("y")}, got)
}

func TestSQLiteCompareAndSetRequiresGuardValue(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestStore(t)

	_, err := s.CompareAndSet(context.Background(), "v", nil, map[string][]byte{"a": []byte("x")})
	assert.Error(t, err)
}

func TestSQLiteCompareAndSetAcrossConnections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	daemon, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = daemon.Close() })
	cli, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	ok, err := daemon.CompareAndSet(ctx, "v", nil, map[string][]byte{"v": []byte("1")})
	require.NoError(t, err)
	require.True(t, ok)

	// both read version 1, the daemon commits first
	ok, err = daemon.CompareAndSet(ctx, "v", []byte("1"), map[string][]byte{"v": []byte("2"), "n": []byte("daemon")})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cli.CompareAndSet(ctx, "v", []byte("1"), map[string][]byte{"v": []byte("3"), "n": []byte("cli")})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := cli.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, []byte("daemon"), got["n"])
}
