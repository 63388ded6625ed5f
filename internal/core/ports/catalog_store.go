package ports

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by Get when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by Update when a declared key changed underneath
	// the transaction. Backends retry it internally before surfacing it.
	ErrConflict = errors.New("concurrent modification")
	// ErrUndeclaredKey is returned by a Txn touching a key not passed to Update.
	ErrUndeclaredKey = errors.New("key not declared in transaction")
)

// Entry is one key/value pair returned by List.
type Entry struct {
	Key   string
	Value []byte
}

// Txn is the view of the store inside Update. Reads see the committed value
// or the transaction's own pending write; writes become visible only when the
// update function returns nil.
type Txn interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// CatalogStore is the key-value persistence used by the lending services.
type CatalogStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns every entry whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Entry, error)
	// Update runs fn as an atomic read-modify-write over keys. Either all of
	// fn's writes are applied or none are.
	Update(ctx context.Context, keys []string, fn func(Txn) error) error
	Ping(ctx context.Context) error
	Close() error
}
