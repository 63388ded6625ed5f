package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

type seedAccount struct {
	username, password, email, role string
}

var seedAccounts = []seedAccount{
	{"admin", "admin123", "admin@library.com", domain.RoleAdmin},
	{"student", "student123", "student@library.com", domain.RoleStudent},
}

var seedBooks = []ports.BookInput{
	{
		Title:       "To Kill a Mockingbird",
		Author:      "Harper Lee",
		Category:    "Fiction",
		ISBN:        "978-0-06-112008-4",
		Quantity:    5,
		Publisher:   "J.B. Lippincott & Co.",
		Year:        1960,
		Description: "A classic novel of a lawyer in the Depression-era South defending a black man charged with the rape of a white woman.",
	},
	{
		Title:       "1984",
		Author:      "George Orwell",
		Category:    "Science Fiction",
		ISBN:        "978-0-452-28423-4",
		Quantity:    8,
		Publisher:   "Secker & Warburg",
		Year:        1949,
		Description: "A dystopian social science fiction novel and cautionary tale about the dangers of totalitarianism.",
	},
	{
		Title:       "The Great Gatsby",
		Author:      "F. Scott Fitzgerald",
		Category:    "Fiction",
		ISBN:        "978-0-7432-7356-5",
		Quantity:    6,
		Publisher:   "Charles Scribner's Sons",
		Year:        1925,
		Description: "A novel about the American Dream in the Roaring Twenties.",
	},
}

// Seeder loads the demo accounts, books and default settings once. The
// meta:seeded marker makes repeated runs no-ops.
type Seeder struct {
	store    ports.CatalogStore
	users    *UserService
	books    *BookService
	settings *SettingsService
	logger   zerolog.Logger
}

func NewSeeder(store ports.CatalogStore, logger zerolog.Logger) *Seeder {
	return &Seeder{
		store:    store,
		users:    NewUserService(NewUserRepository(store), zerolog.Nop()),
		books:    NewBookService(store, nil, zerolog.Nop()),
		settings: NewSettingsService(store, zerolog.Nop()),
		logger:   logger,
	}
}

// Seed reports whether anything was written.
func (s *Seeder) Seed(ctx context.Context) (bool, error) {
	if _, err := s.store.Get(ctx, seededKey); err == nil {
		s.logger.Debug().Msg("catalog already seeded")
		return false, nil
	} else if !errors.Is(err, ports.ErrKeyNotFound) {
		return false, storageErr("seed", err)
	}

	for _, a := range seedAccounts {
		_, err := s.users.CreateUser(ctx, ports.CreateUserInput{
			Username: a.username, Password: a.password, Email: a.email, Role: a.role,
		})
		if err != nil && !errors.Is(err, domain.ErrDuplicateUsername) {
			return false, err
		}
	}
	for _, b := range seedBooks {
		if _, err := s.books.CreateBook(ctx, b); err != nil {
			return false, err
		}
	}
	if _, err := s.store.Get(ctx, settingsKey); errors.Is(err, ports.ErrKeyNotFound) {
		if _, err := s.settings.UpdateSettings(ctx, domain.DefaultSettings()); err != nil {
			return false, err
		}
	}

	if err := s.store.Set(ctx, seededKey, []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
		return false, storageErr("seed", err)
	}
	s.logger.Info().Int("users", len(seedAccounts)).Int("books", len(seedBooks)).Msg("catalog seeded")
	return true, nil
}
