package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/shelfmark/library-api/internal/core/ports"
	"github.com/shelfmark/library-api/internal/infrastructure/db/kv"
)

const (
	scanCount = 200
	mgetBatch = 200
)

// Store is a CatalogStore over plain Redis strings. Every key is namespaced
// with prefix so several deployments can share one database.
//
// Update uses WATCH/MULTI/EXEC: the declared keys are watched, read, and the
// buffered writes are queued in one MULTI block. A concurrent change to any
// watched key aborts EXEC and the whole read-modify-write is retried.
type Store struct {
	client *redis.Client
	prefix string
	retry  []kv.RetryOption
}

var _ ports.CatalogStore = (*Store)(nil)

func NewStore(client *redis.Client, prefix string, retry ...kv.RetryOption) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		retry:  append([]kv.RetryOption{kv.WithBackend("redis")}, retry...),
	}
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// List scans the keyspace for prefix and fetches values with MGET. Keys
// deleted between the scan and the fetch are skipped.
func (s *Store) List(ctx context.Context, prefix string) ([]ports.Entry, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"
	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		seen[iter.Val()] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}

	full := make([]string, 0, len(seen))
	for k := range seen {
		full = append(full, k)
	}
	sort.Strings(full)

	out := make([]ports.Entry, 0, len(full))
	for start := 0; start < len(full); start += mgetBatch {
		end := start + mgetBatch
		if end > len(full) {
			end = len(full)
		}
		vals, err := s.client.MGet(ctx, full[start:end]...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis mget %s: %w", prefix, err)
		}
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			out = append(out, ports.Entry{
				Key:   strings.TrimPrefix(full[start+i], s.prefix),
				Value: []byte(str),
			})
		}
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, keys []string, fn func(ports.Txn) error) error {
	watched := make([]string, len(keys))
	for i, k := range keys {
		watched[i] = s.key(k)
	}

	return kv.RetryOnConflict(ctx, func(ctx context.Context) error {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			txn := kv.NewTxn(keys, func(key string) ([]byte, error) {
				v, err := tx.Get(ctx, s.key(key)).Bytes()
				if errors.Is(err, redis.Nil) {
					return nil, ports.ErrKeyNotFound
				}
				if err != nil {
					return nil, fmt.Errorf("redis get %s: %w", key, err)
				}
				return v, nil
			})
			if err := fn(txn); err != nil {
				return err
			}

			writes := txn.Writes()
			if len(writes) == 0 {
				return nil
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, w := range writes {
					if w.Deleted {
						pipe.Del(ctx, s.key(w.Key))
						continue
					}
					pipe.Set(ctx, s.key(w.Key), w.Value, 0)
				}
				return nil
			})
			return err
		}, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			return ports.ErrConflict
		}
		return err
	}, s.retry...)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
