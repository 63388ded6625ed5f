package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// BookService implements catalog maintenance. Available is owned by the
// ledger: creation shelves every copy, and a quantity edit moves available
// by the same delta.
type BookService struct {
	store     ports.CatalogStore
	publisher ports.InventoryPublisher
	logger    zerolog.Logger
}

var _ ports.BookService = (*BookService)(nil)

func NewBookService(store ports.CatalogStore, publisher ports.InventoryPublisher, logger zerolog.Logger) *BookService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &BookService{store: store, publisher: publisher, logger: logger}
}

func (s *BookService) ListBooks(ctx context.Context, f ports.BookFilter) ([]domain.Book, error) {
	if !domain.ValidSearchField(f.Field) {
		return nil, domain.NewValidationError("field", "must be one of: all, title, author, category, isbn")
	}
	books, err := listBooks(ctx, s.store)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Book, 0, len(books))
	for _, b := range books {
		if f.Category != "" && !strings.EqualFold(b.Category, f.Category) {
			continue
		}
		if b.Matches(f.Query, f.Field) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *BookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var b domain.Book
	if err := getDirect(ctx, s.store, bookKey(id), &b, domain.ErrBookNotFound); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BookService) CreateBook(ctx context.Context, in ports.BookInput) (*domain.Book, error) {
	if err := validateBook(in); err != nil {
		return nil, err
	}
	book := bookFromInput(newID(), in)
	book.Available = book.Quantity

	b, err := encode(book)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, bookKey(book.ID), b); err != nil {
		return nil, storageErr("create book", err)
	}

	s.logger.Info().Str("book_id", book.ID).Str("title", book.Title).Int("quantity", book.Quantity).Msg("book created")
	s.publisher.Publish(ports.InventoryEvent{Kind: ports.InventoryEdited, BookID: book.ID})
	return &book, nil
}

func (s *BookService) UpdateBook(ctx context.Context, id string, in ports.BookInput) (*domain.Book, error) {
	if err := validateBook(in); err != nil {
		return nil, err
	}

	var updated domain.Book
	err := s.store.Update(ctx, []string{bookKey(id)}, func(txn ports.Txn) error {
		current, err := loadBook(txn, id)
		if err != nil {
			return err
		}
		next := bookFromInput(id, in)
		next.Available = current.Available + (next.Quantity - current.Quantity)
		if next.Available < 0 {
			return domain.NewValidationError("quantity",
				fmt.Sprintf("must be at least %d, the number of copies on loan", current.OnLoan()))
		}
		updated = next
		return put(txn, bookKey(id), next)
	})
	if err != nil {
		return nil, storageErr("update book", err)
	}

	s.logger.Info().Str("book_id", id).Int("quantity", updated.Quantity).Int("available", updated.Available).Msg("book updated")
	s.publisher.Publish(ports.InventoryEvent{Kind: ports.InventoryEdited, BookID: id})
	return &updated, nil
}

// DeleteBook removes a title with no copies out. Historical borrow records
// keep their bookId and join to nothing afterwards.
func (s *BookService) DeleteBook(ctx context.Context, id string) error {
	err := s.store.Update(ctx, []string{bookKey(id)}, func(txn ports.Txn) error {
		current, err := loadBook(txn, id)
		if err != nil {
			return err
		}
		if current.OnLoan() > 0 {
			return domain.ErrBookOnLoan
		}
		return txn.Delete(bookKey(id))
	})
	if err != nil {
		return storageErr("delete book", err)
	}
	s.logger.Info().Str("book_id", id).Msg("book deleted")
	return nil
}

// ListCategories returns the distinct categories, sorted.
func (s *BookService) ListCategories(ctx context.Context) ([]string, error) {
	books, err := listBooks(ctx, s.store)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, b := range books {
		if b.Category == "" {
			continue
		}
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		out = append(out, b.Category)
	}
	sort.Strings(out)
	return out, nil
}

func validateBook(in ports.BookInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return domain.NewValidationError("title", "is required")
	case strings.TrimSpace(in.Author) == "":
		return domain.NewValidationError("author", "is required")
	case in.Quantity < 0:
		return domain.NewValidationError("quantity", "must not be negative")
	case in.Year < 0:
		return domain.NewValidationError("year", "must not be negative")
	}
	return nil
}

func bookFromInput(id string, in ports.BookInput) domain.Book {
	return domain.Book{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Category:    strings.TrimSpace(in.Category),
		ISBN:        strings.TrimSpace(in.ISBN),
		Quantity:    in.Quantity,
		Publisher:   strings.TrimSpace(in.Publisher),
		Year:        in.Year,
		Description: in.Description,
		CoverURL:    in.CoverURL,
	}
}
