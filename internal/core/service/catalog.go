package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// Key layout of the catalog store.
const (
	bookPrefix     = "book:"
	userPrefix     = "user:"
	usernamePrefix = "username:"
	borrowPrefix   = "borrow:"
	settingsKey    = "settings"
	seededKey      = "meta:seeded"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

func bookKey(id string) string   { return bookPrefix + id }
func userKey(id string) string   { return userPrefix + id }
func borrowKey(id string) string { return borrowPrefix + id }

func usernameKey(username string) string {
	return usernamePrefix + domain.NormalizeUsername(username)
}

// newID returns a time-ordered UUIDv7, so key order follows creation order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// userRecord is the stored form of a user; unlike domain.User it keeps the hash.
type userRecord struct {
	domain.User
	PasswordHash string `json:"passwordHash"`
}

func toRecord(u domain.User) userRecord {
	return userRecord{User: u, PasswordHash: u.PasswordHash}
}

func (r userRecord) user() domain.User {
	u := r.User
	u.PasswordHash = r.PasswordHash
	return u
}

func encode(v any) ([]byte, error) {
	b, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return b, nil
}

func decode(b []byte, v any) error {
	if err := codec.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func put(txn ports.Txn, key string, v any) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

// load decodes key into v, translating an absent key into notFound.
func load(txn ports.Txn, key string, v any, notFound error) error {
	b, err := txn.Get(key)
	if errors.Is(err, ports.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return err
	}
	return decode(b, v)
}

func loadBook(txn ports.Txn, id string) (*domain.Book, error) {
	var b domain.Book
	if err := load(txn, bookKey(id), &b, domain.ErrBookNotFound); err != nil {
		return nil, err
	}
	return &b, nil
}

func loadBorrow(txn ports.Txn, id string) (*domain.BorrowRecord, error) {
	var r domain.BorrowRecord
	if err := load(txn, borrowKey(id), &r, domain.ErrBorrowNotFound); err != nil {
		return nil, err
	}
	return &r, nil
}

func loadUser(txn ports.Txn, id string) (*domain.User, error) {
	var r userRecord
	if err := load(txn, userKey(id), &r, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	u := r.user()
	return &u, nil
}

// getDirect is load for reads outside a transaction.
func getDirect(ctx context.Context, store ports.CatalogStore, key string, v any, notFound error) error {
	b, err := store.Get(ctx, key)
	if errors.Is(err, ports.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return storageErr("get", err)
	}
	if err := decode(b, v); err != nil {
		return storageErr("get", err)
	}
	return nil
}

// listAll decodes every entry under prefix, in key order.
func listAll[T any](ctx context.Context, store ports.CatalogStore, prefix string) ([]T, error) {
	entries, err := store.List(ctx, prefix)
	if err != nil {
		return nil, storageErr("list", err)
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := decode(e.Value, &v); err != nil {
			return nil, storageErr("list", fmt.Errorf("%s: %w", e.Key, err))
		}
		out = append(out, v)
	}
	return out, nil
}

func listBooks(ctx context.Context, store ports.CatalogStore) ([]domain.Book, error) {
	return listAll[domain.Book](ctx, store, bookPrefix)
}

func listBorrows(ctx context.Context, store ports.CatalogStore) ([]domain.BorrowRecord, error) {
	return listAll[domain.BorrowRecord](ctx, store, borrowPrefix)
}

func listUsers(ctx context.Context, store ports.CatalogStore) ([]domain.User, error) {
	recs, err := listAll[userRecord](ctx, store, userPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.user())
	}
	return out, nil
}

var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrUnavailable,
	domain.ErrAlreadyReturned,
	domain.ErrDuplicateUsername,
	domain.ErrBookOnLoan,
	domain.ErrInvalidCredentials,
	domain.ErrForbidden,
	domain.ErrValidation,
	domain.ErrStorage,
}

// storageErr passes domain errors through and wraps everything else as a StorageError.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return &domain.StorageError{Op: op, Err: err}
}
