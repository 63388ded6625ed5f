package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// UserRepository stores users under user:<id> plus an index entry
// username:<normalized> holding the id. Both keys change in one update, so
// two concurrent inserts of the same name cannot both win.
type UserRepository struct {
	store ports.CatalogStore
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(store ports.CatalogStore) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var rec userRecord
	if err := getDirect(ctx, r.store, userKey(id), &rec, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	u := rec.user()
	return &u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, err := r.store.Get(ctx, usernameKey(username))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr("get username", err)
	}
	return r.FindByID(ctx, string(id))
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	return listUsers(ctx, r.store)
}

func (r *UserRepository) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	if u.ID == "" {
		u.ID = newID()
	}
	keys := []string{userKey(u.ID), usernameKey(u.Username)}
	err := r.store.Update(ctx, keys, func(txn ports.Txn) error {
		if _, err := txn.Get(usernameKey(u.Username)); err == nil {
			return domain.ErrDuplicateUsername
		} else if !errors.Is(err, ports.ErrKeyNotFound) {
			return err
		}
		if err := put(txn, userKey(u.ID), toRecord(u)); err != nil {
			return err
		}
		return txn.Set(usernameKey(u.Username), []byte(u.ID))
	})
	if err != nil {
		return nil, storageErr("insert user", err)
	}
	return &u, nil
}

// Replace overwrites an existing user, moving the username index entry when
// the name changes.
func (r *UserRepository) Replace(ctx context.Context, user *domain.User) (*domain.User, error) {
	current, err := r.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	oldIdx, newIdx := usernameKey(current.Username), usernameKey(user.Username)
	keys := []string{userKey(user.ID), oldIdx}
	if newIdx != oldIdx {
		keys = append(keys, newIdx)
	}

	u := *user
	err = r.store.Update(ctx, keys, func(txn ports.Txn) error {
		stored, err := loadUser(txn, u.ID)
		if err != nil {
			return err
		}
		if usernameKey(stored.Username) != oldIdx {
			return fmt.Errorf("user %s renamed concurrently: %w", u.ID, ports.ErrConflict)
		}
		if newIdx != oldIdx {
			if _, err := txn.Get(newIdx); err == nil {
				return domain.ErrDuplicateUsername
			} else if !errors.Is(err, ports.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(oldIdx); err != nil {
				return err
			}
			if err := txn.Set(newIdx, []byte(u.ID)); err != nil {
				return err
			}
		}
		return put(txn, userKey(u.ID), toRecord(u))
	})
	if err != nil {
		return nil, storageErr("replace user", err)
	}
	return &u, nil
}

func (r *UserRepository) Remove(ctx context.Context, id string) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	keys := []string{userKey(id), usernameKey(current.Username)}
	err = r.store.Update(ctx, keys, func(txn ports.Txn) error {
		if _, err := loadUser(txn, id); err != nil {
			return err
		}
		if err := txn.Delete(userKey(id)); err != nil {
			return err
		}
		return txn.Delete(usernameKey(current.Username))
	})
	return storageErr("remove user", err)
}
