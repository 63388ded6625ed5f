package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
	"github.com/shelfmark/library-api/internal/infrastructure/db/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.InventoryEvent
}

func (p *recordingPublisher) Publish(e ports.InventoryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

type lendingFixture struct {
	svc   *LendingService
	store *memory.Store
	pub   *recordingPublisher
	day   *domain.Date
}

func newLendingFixture(t *testing.T) *lendingFixture {
	t.Helper()
	store := memory.NewStore()
	putUser(t, store, "u-student", "student", domain.RoleStudent)
	putUser(t, store, "u-other", "other", domain.RoleStudent)
	putBook(t, store, domain.Book{ID: "b1", Title: "Dune", Quantity: 2, Available: 2})

	day := jan01
	cal := Calendar{Now: func() time.Time { return day.Time().Add(9 * time.Hour) }, Location: time.UTC}
	pub := &recordingPublisher{}
	svc := NewLendingService(NewLedger(store), NewSettingsService(store, zerolog.Nop()), pub, cal, zerolog.Nop())
	return &lendingFixture{svc: svc, store: store, pub: pub, day: &day}
}

func TestLendingService_StudentBorrowsForSelf(t *testing.T) {
	f := newLendingFixture(t)

	view, err := f.svc.Borrow(context.Background(), ports.BorrowInput{
		BookID: "b1", Role: domain.RoleStudent, RequesterID: "u-student",
	})
	if err != nil {
		t.Fatalf("Borrow returned error: %v", err)
	}
	if view.UserID != "u-student" {
		t.Fatalf("expected loan for requester, got %s", view.UserID)
	}
	if view.DueDate.String() != "2024-01-15" {
		t.Fatalf("expected default 14 day period, got due %s", view.DueDate)
	}
	if view.Book == nil || view.Book.Available != 1 {
		t.Fatalf("expected joined book with 1 available, got %+v", view.Book)
	}
	if view.User == nil || view.User.Username != "student" {
		t.Fatalf("expected joined user, got %+v", view.User)
	}
	if len(f.pub.events) != 1 || f.pub.events[0].Kind != ports.InventoryBorrowed {
		t.Fatalf("expected one borrowed event, got %+v", f.pub.events)
	}
}

func TestLendingService_StudentCannotBorrowForOthers(t *testing.T) {
	f := newLendingFixture(t)

	_, err := f.svc.Borrow(context.Background(), ports.BorrowInput{
		BookID: "b1", UserID: "u-other", Role: domain.RoleStudent, RequesterID: "u-student",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if b := getBook(t, f.store, "b1"); b.Available != 2 {
		t.Fatalf("availability changed on rejected borrow: %d", b.Available)
	}
}

func TestLendingService_AdminBorrowRequiresUser(t *testing.T) {
	f := newLendingFixture(t)

	_, err := f.svc.Borrow(context.Background(), ports.BorrowInput{BookID: "b1", Role: domain.RoleAdmin, RequesterID: "u-admin"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLendingService_ReturnIgnoresClaimedFine(t *testing.T) {
	f := newLendingFixture(t)
	view, err := f.svc.Borrow(context.Background(), ports.BorrowInput{BookID: "b1", UserID: "u-student", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	*f.day = jan18
	claimed := decimal.NewFromInt(100)
	returned, err := f.svc.Return(context.Background(), ports.ReturnInput{BorrowID: view.ID, ClaimedFine: &claimed})
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if returned.Fine == nil || !returned.Fine.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected computed fine 3, got %v", returned.Fine)
	}
	if returned.Status != domain.StatusReturned {
		t.Fatalf("expected returned status, got %s", returned.Status)
	}
	if len(f.pub.events) != 2 || f.pub.events[1].Kind != ports.InventoryReturned {
		t.Fatalf("expected returned event, got %+v", f.pub.events)
	}
}

func TestLendingService_StudentReturnsOnlyOwnLoans(t *testing.T) {
	f := newLendingFixture(t)
	ctx := context.Background()
	mine, err := f.svc.Borrow(ctx, ports.BorrowInput{BookID: "b1", Role: domain.RoleStudent, RequesterID: "u-student"})
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	theirs, err := f.svc.Borrow(ctx, ports.BorrowInput{BookID: "b1", UserID: "u-other", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	_, err = f.svc.Return(ctx, ports.ReturnInput{BorrowID: theirs.ID, Role: domain.RoleStudent, RequesterID: "u-student"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if b := getBook(t, f.store, "b1"); b.Available != 0 {
		t.Fatalf("rejected return changed availability: %d", b.Available)
	}

	_, err = f.svc.Return(ctx, ports.ReturnInput{BorrowID: "missing", Role: domain.RoleStudent, RequesterID: "u-student"})
	if !errors.Is(err, domain.ErrBorrowNotFound) {
		t.Fatalf("expected ErrBorrowNotFound, got %v", err)
	}

	returned, err := f.svc.Return(ctx, ports.ReturnInput{BorrowID: mine.ID, Role: domain.RoleStudent, RequesterID: "u-student"})
	if err != nil {
		t.Fatalf("Return own loan: %v", err)
	}
	if returned.Status != domain.StatusReturned {
		t.Fatalf("expected returned status, got %s", returned.Status)
	}
	if _, err := f.svc.Return(ctx, ports.ReturnInput{BorrowID: theirs.ID, Role: domain.RoleAdmin, RequesterID: "u-admin"}); err != nil {
		t.Fatalf("admin return: %v", err)
	}
}

func TestLendingService_SettingsApplyToNewLoansOnly(t *testing.T) {
	f := newLendingFixture(t)
	first, err := f.svc.Borrow(context.Background(), ports.BorrowInput{BookID: "b1", UserID: "u-student", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	settings := NewSettingsService(f.store, zerolog.Nop())
	if _, err := settings.UpdateSettings(context.Background(), domain.Settings{
		LowStockThreshold: 1, BorrowingPeriodDays: 7, FinePerDay: decimal.NewFromInt(1),
	}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	second, err := f.svc.Borrow(context.Background(), ports.BorrowInput{BookID: "b1", UserID: "u-other", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if second.DueDate.String() != "2024-01-08" {
		t.Fatalf("expected new period for new loan, got %s", second.DueDate)
	}

	views, err := f.svc.ListBorrows(context.Background(), ports.BorrowFilter{})
	if err != nil {
		t.Fatalf("ListBorrows: %v", err)
	}
	for _, v := range views {
		if v.ID == first.ID && v.DueDate.String() != "2024-01-15" {
			t.Fatalf("existing due date moved to %s", v.DueDate)
		}
	}
}

func TestLendingService_ListBorrows_StudentSeesOwnOnly(t *testing.T) {
	f := newLendingFixture(t)
	for _, uid := range []string{"u-student", "u-other"} {
		if _, err := f.svc.Borrow(context.Background(), ports.BorrowInput{BookID: "b1", UserID: uid, Role: domain.RoleAdmin}); err != nil {
			t.Fatalf("Borrow: %v", err)
		}
	}

	views, err := f.svc.ListBorrows(context.Background(), ports.BorrowFilter{
		UserID: "u-other", Role: domain.RoleStudent, RequesterID: "u-student",
	})
	if err != nil {
		t.Fatalf("ListBorrows: %v", err)
	}
	if len(views) != 1 || views[0].UserID != "u-student" {
		t.Fatalf("student must only see own loans, got %+v", views)
	}

	if _, err := f.svc.ListBorrows(context.Background(), ports.BorrowFilter{Status: "lost"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}
}

func TestLendingService_ListOverdueProjectsFine(t *testing.T) {
	f := newLendingFixture(t)
	if _, err := f.svc.Borrow(context.Background(), ports.BorrowInput{BookID: "b1", UserID: "u-student", Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	*f.day = domain.NewDate(2024, 1, 20)
	overdue, err := f.svc.ListOverdue(context.Background())
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 1 {
		t.Fatalf("expected 1 overdue loan, got %d", len(overdue))
	}
	if overdue[0].ProjectedFine == nil || !overdue[0].ProjectedFine.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected projected fine 5, got %v", overdue[0].ProjectedFine)
	}

	stats, err := f.svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if !stats.TotalFines.IsZero() {
		t.Fatalf("projected fines must not count in totals, got %s", stats.TotalFines)
	}
	if stats.OverdueCount != 1 {
		t.Fatalf("expected 1 overdue, got %d", stats.OverdueCount)
	}
}

func TestLendingService_LowStockUsesStoredThreshold(t *testing.T) {
	f := newLendingFixture(t)
	low, err := f.svc.ListLowStock(context.Background())
	if err != nil {
		t.Fatalf("ListLowStock: %v", err)
	}
	if len(low) != 1 {
		t.Fatalf("2 available <= default threshold 3, expected 1 book, got %d", len(low))
	}
}
