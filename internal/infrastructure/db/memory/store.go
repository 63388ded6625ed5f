// Package memory is a process-local CatalogStore used by tests and local
// development. Its contents are lost on exit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shelfmark/library-api/internal/core/ports"
	"github.com/shelfmark/library-api/internal/infrastructure/db/kv"
)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ ports.CatalogStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ports.ErrKeyNotFound
	}
	return kv.Clone(v), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = kv.Clone(value)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]ports.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.Entry, 0)
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ports.Entry{Key: k, Value: kv.Clone(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Update holds the write lock for the whole of fn, so transactions are serialized.
func (s *Store) Update(ctx context.Context, keys []string, fn func(ports.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := kv.NewTxn(keys, func(key string) ([]byte, error) {
		v, ok := s.data[key]
		if !ok {
			return nil, ports.ErrKeyNotFound
		}
		return kv.Clone(v), nil
	})
	if err := fn(txn); err != nil {
		return err
	}
	for _, w := range txn.Writes() {
		if w.Deleted {
			delete(s.data, w.Key)
			continue
		}
		s.data[w.Key] = w.Value
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
