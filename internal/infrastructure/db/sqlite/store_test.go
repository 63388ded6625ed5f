package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/library-api/internal/core/ports"
	"github.com/shelfmark/library-api/internal/infrastructure/db/kv/kvtest"
)

func TestStore_Conformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) ports.CatalogStore {
		s, err := Open(filepath.Join(t.TempDir(), "library.db"))
		require.NoError(t, err)
		return s
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "library.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "settings", []byte(`{"lowStockThreshold":2}`)))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, "settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lowStockThreshold":2}`, string(v))
}

func TestStore_ListMatchesLiteralPrefix(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "username:a_b", []byte("1")))
	require.NoError(t, s.Set(ctx, "username:axb", []byte("2")))

	entries, err := s.List(ctx, "username:a_")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "username:a_b", entries[0].Key)
}
