package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sferrors "github.com/yourusername/storefront/pkg/errors"
)

func TestSQLitePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "data", "kv.db"))
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "k", []byte(`[1,2]`)))
	require.NoError(t, s.Put(ctx, "k", []byte(`[3]`)))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[3]`, string(v))

	deleted, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "ecommerce-favorites", []byte(`[7]`)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "ecommerce-favorites")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[7]`, string(v))
	assert.Equal(t, path, s.Path())
}

func TestSQLiteClosed(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, sferrors.ErrClosed)
	assert.ErrorIs(t, s.Put(ctx, "k", nil), sferrors.ErrClosed)
}
