package ports

import (
	"context"

	"github.com/shelfmark/library-api/internal/core/domain"
)

type CreateUserInput struct {
	Username string
	Password string
	Email    string
	Role     string
}

// UpdateUserInput replaces username, email and role. An empty Password keeps
// the current one.
type UpdateUserInput struct {
	Username string
	Password string
	Email    string
	Role     string
}

type UserService interface {
	ListUsers(ctx context.Context, query string) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type SettingsService interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, s domain.Settings) (domain.Settings, error)
}
