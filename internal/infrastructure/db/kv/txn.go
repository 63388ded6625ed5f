// Package kv holds the pieces shared by every CatalogStore backend: the
// buffered transaction handed to update functions and the conflict retry loop.
package kv

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shelfmark/library-api/internal/core/ports"
)

// ReadFunc loads the committed value of key, returning ports.ErrKeyNotFound
// when it is absent.
type ReadFunc func(key string) ([]byte, error)

// Write is one pending mutation. Deleted writes carry no value.
type Write struct {
	Key     string
	Value   []byte
	Deleted bool
}

// Txn buffers writes over a fixed key set. Backends read through it while
// their own isolation mechanism is held and apply Writes on commit.
type Txn struct {
	declared map[string]struct{}
	read     ReadFunc
	pending  map[string]Write
}

var _ ports.Txn = (*Txn)(nil)

func NewTxn(keys []string, read ReadFunc) *Txn {
	declared := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		declared[k] = struct{}{}
	}
	return &Txn{declared: declared, read: read, pending: make(map[string]Write)}
}

func (t *Txn) check(key string) error {
	if _, ok := t.declared[key]; !ok {
		return fmt.Errorf("%w: %s", ports.ErrUndeclaredKey, key)
	}
	return nil
}

func (t *Txn) Get(key string) ([]byte, error) {
	if err := t.check(key); err != nil {
		return nil, err
	}
	if w, ok := t.pending[key]; ok {
		if w.Deleted {
			return nil, ports.ErrKeyNotFound
		}
		return clone(w.Value), nil
	}
	return t.read(key)
}

func (t *Txn) Set(key string, value []byte) error {
	if err := t.check(key); err != nil {
		return err
	}
	t.pending[key] = Write{Key: key, Value: clone(value)}
	return nil
}

func (t *Txn) Delete(key string) error {
	if err := t.check(key); err != nil {
		return err
	}
	t.pending[key] = Write{Key: key, Deleted: true}
	return nil
}

// Writes returns the pending mutations ordered by key.
func (t *Txn) Writes() []Write {
	out := make([]Write, 0, len(t.pending))
	for _, w := range t.pending {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Keys returns the declared keys in sorted order.
func (t *Txn) Keys() []string {
	out := make([]string, 0, len(t.declared))
	for k := range t.declared {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool { return errors.Is(err, ports.ErrKeyNotFound) }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Clone returns a copy of b so callers can keep it past the backend's buffer lifetime.
func Clone(b []byte) []byte { return clone(b) }
