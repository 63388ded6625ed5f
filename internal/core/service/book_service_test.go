package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
	"github.com/shelfmark/library-api/internal/infrastructure/db/memory"
)

func newBookService(t *testing.T) (*BookService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	return NewBookService(store, pub, zerolog.Nop()), store, pub
}

func TestBookService_CreateShelvesAllCopies(t *testing.T) {
	svc, _, pub := newBookService(t)

	b, err := svc.CreateBook(context.Background(), ports.BookInput{Title: " Emma ", Author: "Jane Austen", Quantity: 4})
	if err != nil {
		t.Fatalf("CreateBook returned error: %v", err)
	}
	if b.Available != 4 || b.Quantity != 4 {
		t.Fatalf("expected 4/4, got %d/%d", b.Available, b.Quantity)
	}
	if b.Title != "Emma" {
		t.Fatalf("expected trimmed title, got %q", b.Title)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != ports.InventoryEdited {
		t.Fatalf("expected edited event, got %+v", pub.events)
	}
}

func TestBookService_CreateValidation(t *testing.T) {
	svc, _, _ := newBookService(t)

	cases := []struct {
		in    ports.BookInput
		field string
	}{
		{ports.BookInput{Author: "x", Quantity: 1}, "title"},
		{ports.BookInput{Title: "x", Quantity: 1}, "author"},
		{ports.BookInput{Title: "x", Author: "y", Quantity: -1}, "quantity"},
	}
	for _, tc := range cases {
		_, err := svc.CreateBook(context.Background(), tc.in)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("expected validation error on %s, got %v", tc.field, err)
		}
	}
}

func TestBookService_UpdateShiftsAvailableByDelta(t *testing.T) {
	svc, store, _ := newBookService(t)
	putBook(t, store, domain.Book{ID: "b1", Title: "Emma", Author: "Austen", Quantity: 5, Available: 2})

	updated, err := svc.UpdateBook(context.Background(), "b1", ports.BookInput{Title: "Emma", Author: "Austen", Quantity: 7})
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if updated.Available != 4 {
		t.Fatalf("expected available 4 after +2 copies, got %d", updated.Available)
	}

	updated, err = svc.UpdateBook(context.Background(), "b1", ports.BookInput{Title: "Emma", Author: "Austen", Quantity: 3})
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if updated.Available != 0 || updated.OnLoan() != 3 {
		t.Fatalf("expected 0 available with 3 on loan, got %+v", updated)
	}
}

func TestBookService_UpdateBelowOnLoanFails(t *testing.T) {
	svc, store, _ := newBookService(t)
	putBook(t, store, domain.Book{ID: "b1", Title: "Emma", Author: "Austen", Quantity: 5, Available: 2})

	_, err := svc.UpdateBook(context.Background(), "b1", ports.BookInput{Title: "Emma", Author: "Austen", Quantity: 2})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if b := getBook(t, store, "b1"); b.Quantity != 5 || b.Available != 2 {
		t.Fatalf("book changed on rejected update: %+v", b)
	}

	if _, err := svc.UpdateBook(context.Background(), "missing", ports.BookInput{Title: "x", Author: "y"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBookService_DeleteRefusesWhileOnLoan(t *testing.T) {
	svc, store, _ := newBookService(t)
	putBook(t, store, domain.Book{ID: "b1", Title: "Emma", Author: "Austen", Quantity: 2, Available: 1})
	putBook(t, store, domain.Book{ID: "b2", Title: "Persuasion", Author: "Austen", Quantity: 2, Available: 2})

	if err := svc.DeleteBook(context.Background(), "b1"); !errors.Is(err, domain.ErrBookOnLoan) {
		t.Fatalf("expected ErrBookOnLoan, got %v", err)
	}
	if err := svc.DeleteBook(context.Background(), "b2"); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if _, err := svc.GetBook(context.Background(), "b2"); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound after delete, got %v", err)
	}
}

func TestBookService_ListFiltersAndCategories(t *testing.T) {
	svc, store, _ := newBookService(t)
	putBook(t, store, domain.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", ISBN: "111"})
	putBook(t, store, domain.Book{ID: "b2", Title: "Emma", Author: "Jane Austen", Category: "Fiction", ISBN: "222"})
	putBook(t, store, domain.Book{ID: "b3", Title: "Foundation", Author: "Isaac Asimov", Category: "Science Fiction", ISBN: "333"})

	cases := []struct {
		name string
		f    ports.BookFilter
		want []string
	}{
		{"all", ports.BookFilter{}, []string{"b1", "b2", "b3"}},
		{"any field", ports.BookFilter{Query: "austen"}, []string{"b2"}},
		{"author only", ports.BookFilter{Query: "dune", Field: domain.SearchAuthor}, nil},
		{"isbn", ports.BookFilter{Query: "333", Field: domain.SearchISBN}, []string{"b3"}},
		{"category", ports.BookFilter{Category: "science fiction"}, []string{"b1", "b3"}},
		{"category and query", ports.BookFilter{Category: "Science Fiction", Query: "found"}, []string{"b3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.ListBooks(context.Background(), tc.f)
			if err != nil {
				t.Fatalf("ListBooks: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %+v", tc.want, got)
			}
			for i, b := range got {
				if b.ID != tc.want[i] {
					t.Fatalf("position %d: expected %s, got %s", i, tc.want[i], b.ID)
				}
			}
		})
	}

	if _, err := svc.ListBooks(context.Background(), ports.BookFilter{Field: "publisher"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}

	cats, err := svc.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "Fiction" || cats[1] != "Science Fiction" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}
