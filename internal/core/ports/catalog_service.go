package ports

import (
	"context"

	"github.com/shelfmark/library-api/internal/core/domain"
)

// BookFilter narrows ListBooks. Query is matched against Field (see
// domain.Search*); Category is an exact, case-insensitive filter.
type BookFilter struct {
	Query    string
	Field    string
	Category string
}

// BookInput carries the editable fields of a book. Available is derived
// from Quantity and active loans, so callers cannot set it.
type BookInput struct {
	Title       string
	Author      string
	Category    string
	ISBN        string
	Quantity    int
	Publisher   string
	Year        int
	Description string
	CoverURL    string
}

type BookService interface {
	ListBooks(ctx context.Context, filter BookFilter) ([]domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	CreateBook(ctx context.Context, input BookInput) (*domain.Book, error)
	UpdateBook(ctx context.Context, id string, input BookInput) (*domain.Book, error)
	DeleteBook(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]string, error)
}
