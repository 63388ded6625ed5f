// Package kvtest is a conformance suite every CatalogStore backend runs from
// its own tests.
package kvtest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/library-api/internal/core/ports"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) ports.CatalogStore

func Run(t *testing.T, newStore Factory) {
	t.Run("GetSetDelete", func(t *testing.T) { testGetSetDelete(t, newStore(t)) })
	t.Run("ListByPrefixSorted", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("UpdateCommits", func(t *testing.T) { testUpdateCommits(t, newStore(t)) })
	t.Run("UpdateRollsBackOnError", func(t *testing.T) { testUpdateRollback(t, newStore(t)) })
	t.Run("UpdateRejectsUndeclaredKeys", func(t *testing.T) { testUndeclared(t, newStore(t)) })
	t.Run("ConcurrentIncrements", func(t *testing.T) { testConcurrentIncrements(t, newStore(t)) })
}

func closeStore(t *testing.T, s ports.CatalogStore) {
	t.Cleanup(func() { _ = s.Close() })
}

func testGetSetDelete(t *testing.T, s ports.CatalogStore) {
	closeStore(t, s)
	ctx := context.Background()

	_, err := s.Get(ctx, "book:missing")
	require.ErrorIs(t, err, ports.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "book:1", []byte(`{"id":"1"}`)))
	got, err := s.Get(ctx, "book:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(got))

	require.NoError(t, s.Set(ctx, "book:1", []byte(`{"id":"1","v":2}`)))
	got, err = s.Get(ctx, "book:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1","v":2}`, string(got))

	require.NoError(t, s.Delete(ctx, "book:1"))
	_, err = s.Get(ctx, "book:1")
	require.ErrorIs(t, err, ports.ErrKeyNotFound)

	require.NoError(t, s.Delete(ctx, "book:1"), "deleting an absent key is not an error")
	require.NoError(t, s.Ping(ctx))
}

func testList(t *testing.T, s ports.CatalogStore) {
	closeStore(t, s)
	ctx := context.Background()

	for _, k := range []string{"book:c", "user:a", "book:a", "book:b", "bookmark"} {
		require.NoError(t, s.Set(ctx, k, []byte(k)))
	}

	entries, err := s.List(ctx, "book:")
	require.NoError(t, err)
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
		assert.Equal(t, e.Key, string(e.Value))
	}
	assert.Equal(t, []string{"book:a", "book:b", "book:c"}, keys)

	empty, err := s.List(ctx, "borrow:")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testUpdateCommits(t *testing.T, s ports.CatalogStore) {
	closeStore(t, s)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "c", []byte("gone")))

	err := s.Update(ctx, []string{"a", "b", "c"}, func(txn ports.Txn) error {
		v, err := txn.Get("a")
		if err != nil {
			return err
		}
		if _, err := txn.Get("b"); !errors.Is(err, ports.ErrKeyNotFound) {
			return errors.New("expected b to be absent")
		}
		if err := txn.Set("a", append(v, '1')); err != nil {
			return err
		}
		if err := txn.Set("b", []byte("new")); err != nil {
			return err
		}
		// Reads observe the transaction's own writes.
		if got, err := txn.Get("b"); err != nil || string(got) != "new" {
			return errors.New("pending write not visible")
		}
		return txn.Delete("c")
	})
	require.NoError(t, err)

	a, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "11", string(a))
	b, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
	_, err = s.Get(ctx, "c")
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)
}

func testUpdateRollback(t *testing.T, s ports.CatalogStore) {
	closeStore(t, s)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1")))

	boom := errors.New("boom")
	err := s.Update(ctx, []string{"a", "b"}, func(txn ports.Txn) error {
		_ = txn.Set("a", []byte("2"))
		_ = txn.Set("b", []byte("2"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(a))
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)
}

func testUndeclared(t *testing.T, s ports.CatalogStore) {
	closeStore(t, s)
	err := s.Update(context.Background(), []string{"a"}, func(txn ports.Txn) error {
		return txn.Set("b", []byte("x"))
	})
	assert.ErrorIs(t, err, ports.ErrUndeclaredKey)
}

func testConcurrentIncrements(t *testing.T, s ports.CatalogStore) {
	closeStore(t, s)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "counter", []byte("0")))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, []string{"counter"}, func(txn ports.Txn) error {
				v, err := txn.Get("counter")
				if err != nil {
					return err
				}
				n, err := strconv.Atoi(string(v))
				if err != nil {
					return err
				}
				return txn.Set("counter", []byte(strconv.Itoa(n+1)))
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	v, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), string(v))
}
