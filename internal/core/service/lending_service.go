package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/shelfmark/library-api/internal/metrics"
	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// LendingService is the request-facing side of the ledger: it supplies the
// current day and settings, enforces who may borrow for whom, records
// metrics and announces inventory changes.
type LendingService struct {
	ledger    *Ledger
	settings  ports.SettingsService
	publisher ports.InventoryPublisher
	calendar  Calendar
	logger    zerolog.Logger
}

var _ ports.LendingService = (*LendingService)(nil)

// NewLendingService wires the facade. A nil publisher disables inventory events.
func NewLendingService(
	ledger *Ledger,
	settings ports.SettingsService,
	publisher ports.InventoryPublisher,
	calendar Calendar,
	logger zerolog.Logger,
) *LendingService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &LendingService{
		ledger:    ledger,
		settings:  settings,
		publisher: publisher,
		calendar:  calendar,
		logger:    logger,
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(ports.InventoryEvent) {}

func (s *LendingService) Borrow(ctx context.Context, in ports.BorrowInput) (*ports.BorrowView, error) {
	userID := in.UserID
	if in.Role == domain.RoleStudent {
		if userID == "" {
			userID = in.RequesterID
		}
		if userID != in.RequesterID {
			metrics.BorrowRejectionsTotal.WithLabelValues("forbidden").Inc()
			return nil, domain.ErrForbidden
		}
	}
	if in.BookID == "" {
		return nil, domain.NewValidationError("bookId", "is required")
	}
	if userID == "" {
		return nil, domain.NewValidationError("userId", "is required")
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.ledger.Borrow(ctx, in.BookID, userID, s.calendar.Today(), settings)
	if err != nil {
		metrics.BorrowRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		s.logger.Info().Err(err).Str("book_id", in.BookID).Str("user_id", userID).Msg("borrow rejected")
		return nil, err
	}

	metrics.BorrowsTotal.Inc()
	s.publisher.Publish(ports.InventoryEvent{Kind: ports.InventoryBorrowed, BookID: rec.BookID, At: s.calendar.Instant()})
	s.logger.Info().
		Str("borrow_id", rec.ID).
		Str("book_id", rec.BookID).
		Str("user_id", rec.UserID).
		Str("due_date", rec.DueDate.String()).
		Msg("book borrowed")

	return s.viewOf(ctx, *rec)
}

func (s *LendingService) Return(ctx context.Context, in ports.ReturnInput) (*ports.BorrowView, error) {
	if in.Role == domain.RoleStudent {
		var owned domain.BorrowRecord
		if err := getDirect(ctx, s.ledger.store, borrowKey(in.BorrowID), &owned, domain.ErrBorrowNotFound); err != nil {
			return nil, err
		}
		if owned.UserID != in.RequesterID {
			return nil, domain.ErrForbidden
		}
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.ledger.Return(ctx, in.BorrowID, s.calendar.Today(), settings)
	if err != nil {
		return nil, err
	}

	fine := rec.FinalizedFine()
	if in.ClaimedFine != nil && !in.ClaimedFine.Equal(fine) {
		s.logger.Debug().
			Str("borrow_id", rec.ID).
			Str("claimed", in.ClaimedFine.String()).
			Str("computed", fine.String()).
			Msg("client fine differs from computed fine, keeping computed")
	}

	late := rec.ReturnDate.After(rec.DueDate)
	metrics.ReturnsTotal.WithLabelValues(strconv.FormatBool(late)).Inc()
	metrics.FinesAssessedTotal.Add(fine.InexactFloat64())
	s.publisher.Publish(ports.InventoryEvent{Kind: ports.InventoryReturned, BookID: rec.BookID, At: s.calendar.Instant()})
	s.logger.Info().
		Str("borrow_id", rec.ID).
		Str("book_id", rec.BookID).
		Bool("late", late).
		Str("fine", fine.String()).
		Msg("book returned")

	return s.viewOf(ctx, *rec)
}

// viewOf joins a freshly written record with its book and user.
func (s *LendingService) viewOf(ctx context.Context, rec domain.BorrowRecord) (*ports.BorrowView, error) {
	today := s.calendar.Today()
	v := ports.BorrowView{
		BorrowRecord: rec,
		Status:       rec.StatusOn(today),
		DaysOverdue:  rec.DaysOverdue(today),
	}
	var book domain.Book
	if err := getDirect(ctx, s.ledger.store, bookKey(rec.BookID), &book, domain.ErrBookNotFound); err == nil {
		v.Book = &book
	}
	var user userRecord
	if err := getDirect(ctx, s.ledger.store, userKey(rec.UserID), &user, domain.ErrUserNotFound); err == nil {
		u := user.User
		v.User = &u
	}
	return &v, nil
}

func (s *LendingService) ListBorrows(ctx context.Context, f ports.BorrowFilter) ([]ports.BorrowView, error) {
	userID := f.UserID
	if f.Role == domain.RoleStudent {
		userID = f.RequesterID
	}
	if f.Status != "" && !domain.ValidBorrowStatus(f.Status) {
		return nil, domain.NewValidationError("status", "must be one of: active, overdue, returned")
	}
	return s.ledger.ListBorrows(ctx, s.calendar.Today(), userID, domain.BorrowStatus(f.Status))
}

// ListOverdue adds the fine each overdue loan would incur if returned today.
func (s *LendingService) ListOverdue(ctx context.Context) ([]ports.BorrowView, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	today := s.calendar.Today()
	views, err := s.ledger.ListOverdue(ctx, today)
	if err != nil {
		return nil, err
	}
	for i := range views {
		projected := domain.ComputeFine(views[i].DueDate, today, settings.FinePerDay)
		views[i].ProjectedFine = &projected
	}
	return views, nil
}

func (s *LendingService) ListLowStock(ctx context.Context) ([]domain.Book, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.ListLowStock(ctx, settings)
}

func (s *LendingService) RankPopular(ctx context.Context, limit int) ([]ports.PopularBook, error) {
	return s.ledger.RankPopular(ctx, limit)
}

func (s *LendingService) DashboardStats(ctx context.Context) (*ports.DashboardStats, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.DashboardStats(ctx, s.calendar.Today(), settings)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrBookNotFound):
		return "book_not_found"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}
