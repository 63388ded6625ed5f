package ports

import (
	"context"

	"github.com/shelfmark/library-api/internal/core/domain"
)

// UserRepository persists accounts. Usernames are unique case-insensitively;
// Insert and Replace fail with domain.ErrDuplicateUsername on a collision.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
	Replace(ctx context.Context, user *domain.User) (*domain.User, error)
	Remove(ctx context.Context, id string) error
}
