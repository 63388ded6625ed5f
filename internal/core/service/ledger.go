package service

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

const defaultPopularLimit = 10

// Ledger owns book availability and the borrow record lifecycle. Every
// mutation is one atomic store update over the book and the record, so a
// decrement is never persisted without its record or the other way round.
//
// The ledger takes the current day and settings from the caller; it has no
// clock and reads no configuration of its own.
type Ledger struct {
	store ports.CatalogStore
	newID func() string
}

func NewLedger(store ports.CatalogStore) *Ledger {
	return &Ledger{store: store, newID: newID}
}

// Borrow takes one copy of bookID off the shelf for userID.
func (l *Ledger) Borrow(ctx context.Context, bookID, userID string, today domain.Date, settings domain.Settings) (*domain.BorrowRecord, error) {
	id := l.newID()
	var rec domain.BorrowRecord

	keys := []string{bookKey(bookID), userKey(userID), borrowKey(id)}
	err := l.store.Update(ctx, keys, func(txn ports.Txn) error {
		book, err := loadBook(txn, bookID)
		if err != nil {
			return err
		}
		// The user is read, not written, so on Mongo this check does not
		// conflict with a concurrent delete. Loans may outlive their user.
		if _, err := loadUser(txn, userID); err != nil {
			return err
		}
		if book.Available <= 0 {
			return domain.ErrUnavailable
		}

		book.Available--
		rec = domain.BorrowRecord{
			ID:         id,
			BookID:     bookID,
			UserID:     userID,
			BorrowDate: today,
			DueDate:    today.AddDays(settings.BorrowingPeriodDays),
		}
		if err := put(txn, bookKey(bookID), book); err != nil {
			return err
		}
		return put(txn, borrowKey(id), rec)
	})
	if err != nil {
		return nil, storageErr("borrow", err)
	}
	return &rec, nil
}

// Return closes an active loan, fixes its fine and puts the copy back. The
// shelf count never exceeds quantity; a book deleted meanwhile is skipped.
func (l *Ledger) Return(ctx context.Context, borrowID string, today domain.Date, settings domain.Settings) (*domain.BorrowRecord, error) {
	var current domain.BorrowRecord
	if err := getDirect(ctx, l.store, borrowKey(borrowID), &current, domain.ErrBorrowNotFound); err != nil {
		return nil, err
	}
	if !current.Active() {
		return nil, domain.ErrAlreadyReturned
	}

	var rec *domain.BorrowRecord
	keys := []string{borrowKey(borrowID), bookKey(current.BookID)}
	err := l.store.Update(ctx, keys, func(txn ports.Txn) error {
		r, err := loadBorrow(txn, borrowID)
		if err != nil {
			return err
		}
		if !r.Active() {
			return domain.ErrAlreadyReturned
		}

		returned := today
		if returned.Before(r.BorrowDate) {
			returned = r.BorrowDate
		}
		fine := domain.ComputeFine(r.DueDate, returned, settings.FinePerDay)
		r.ReturnDate = &returned
		r.Fine = &fine

		book, err := loadBook(txn, r.BookID)
		switch {
		case errors.Is(err, domain.ErrBookNotFound):
		case err != nil:
			return err
		default:
			if book.Available < book.Quantity {
				book.Available++
			}
			if err := put(txn, bookKey(book.ID), book); err != nil {
				return err
			}
		}

		rec = r
		return put(txn, borrowKey(borrowID), r)
	})
	if err != nil {
		return nil, storageErr("return", err)
	}
	return rec, nil
}

// snapshot is a point-in-time read of the whole catalog used by the
// read-side projections. Prefix reads are not mutually atomic.
type snapshot struct {
	books   []domain.Book
	borrows []domain.BorrowRecord
	users   []domain.User
	bookIdx map[string]*domain.Book
	userIdx map[string]*domain.User
}

func (l *Ledger) snapshot(ctx context.Context, withUsers bool) (*snapshot, error) {
	books, err := listBooks(ctx, l.store)
	if err != nil {
		return nil, err
	}
	borrows, err := listBorrows(ctx, l.store)
	if err != nil {
		return nil, err
	}
	s := &snapshot{books: books, borrows: borrows, bookIdx: make(map[string]*domain.Book, len(books))}
	for i := range books {
		s.bookIdx[books[i].ID] = &books[i]
	}
	if withUsers {
		users, err := listUsers(ctx, l.store)
		if err != nil {
			return nil, err
		}
		s.users = users
		s.userIdx = make(map[string]*domain.User, len(users))
		for i := range users {
			users[i].PasswordHash = ""
			s.userIdx[users[i].ID] = &users[i]
		}
	}
	return s, nil
}

// view joins a record with its book and user. The joined entities are
// copies and are never written back.
func (s *snapshot) view(r domain.BorrowRecord, asOf domain.Date) ports.BorrowView {
	v := ports.BorrowView{
		BorrowRecord: r,
		Status:       r.StatusOn(asOf),
		DaysOverdue:  r.DaysOverdue(asOf),
	}
	if b, ok := s.bookIdx[r.BookID]; ok {
		book := *b
		v.Book = &book
	}
	if u, ok := s.userIdx[r.UserID]; ok {
		user := *u
		v.User = &user
	}
	return v
}

// ListBorrows returns joined records in creation order. Empty userID or
// status means no filter on that field.
func (l *Ledger) ListBorrows(ctx context.Context, asOf domain.Date, userID string, status domain.BorrowStatus) ([]ports.BorrowView, error) {
	s, err := l.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]ports.BorrowView, 0, len(s.borrows))
	for _, r := range s.borrows {
		if userID != "" && r.UserID != userID {
			continue
		}
		if !matchesStatus(r, asOf, status) {
			continue
		}
		out = append(out, s.view(r, asOf))
	}
	return out, nil
}

// matchesStatus treats overdue records as active too.
func matchesStatus(r domain.BorrowRecord, asOf domain.Date, status domain.BorrowStatus) bool {
	switch status {
	case domain.StatusActive:
		return r.Active()
	case domain.StatusOverdue:
		return r.OverdueOn(asOf)
	case domain.StatusReturned:
		return !r.Active()
	default:
		return true
	}
}

// ListOverdue returns active records with dueDate < asOf, in creation order.
func (l *Ledger) ListOverdue(ctx context.Context, asOf domain.Date) ([]ports.BorrowView, error) {
	return l.ListBorrows(ctx, asOf, "", domain.StatusOverdue)
}

// ListLowStock returns books with available <= threshold, zero included.
func (l *Ledger) ListLowStock(ctx context.Context, settings domain.Settings) ([]domain.Book, error) {
	books, err := listBooks(ctx, l.store)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Book, 0)
	for _, b := range books {
		if b.IsLowStock(settings.LowStockThreshold) {
			out = append(out, b)
		}
	}
	return out, nil
}

// RankPopular counts every record ever created per book and sorts by count
// descending, then by book id ascending. Books without loans rank with a
// count of zero; records of deleted books are ignored.
func (l *Ledger) RankPopular(ctx context.Context, limit int) ([]ports.PopularBook, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	s, err := l.snapshot(ctx, false)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(s.books))
	for _, r := range s.borrows {
		counts[r.BookID]++
	}
	ranked := make([]ports.PopularBook, 0, len(s.books))
	for _, b := range s.books {
		ranked = append(ranked, ports.PopularBook{Book: b, BorrowCount: counts[b.ID]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].BorrowCount != ranked[j].BorrowCount {
			return ranked[i].BorrowCount > ranked[j].BorrowCount
		}
		return ranked[i].Book.ID < ranked[j].Book.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// DashboardStats aggregates the catalog as of asOf. Only finalized fines
// count towards TotalFines.
func (l *Ledger) DashboardStats(ctx context.Context, asOf domain.Date, settings domain.Settings) (*ports.DashboardStats, error) {
	s, err := l.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}

	stats := &ports.DashboardStats{TotalFines: decimal.Zero}
	for _, b := range s.books {
		stats.TotalBooks += b.Quantity
		stats.AvailableBooks += b.Available
		if b.IsLowStock(settings.LowStockThreshold) {
			stats.LowStockCount++
		}
	}
	for _, r := range s.borrows {
		if r.Active() {
			stats.ActiveBorrows++
		}
		if r.OverdueOn(asOf) {
			stats.OverdueCount++
		}
		stats.TotalFines = stats.TotalFines.Add(r.FinalizedFine())
	}
	for _, u := range s.users {
		if u.Role == domain.RoleStudent {
			stats.StudentCount++
		}
	}
	return stats, nil
}
