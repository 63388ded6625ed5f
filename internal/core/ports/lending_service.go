package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfmark/library-api/internal/core/domain"
)

// BorrowInput carries a borrow request. Role and RequesterID identify the
// caller: a Student may only borrow for themselves.
type BorrowInput struct {
	BookID      string
	UserID      string
	Role        string
	RequesterID string
}

// ReturnInput closes a loan. ClaimedFine is what the client computed, if
// anything; the stored fine is always recomputed server-side.
// ReturnInput closes a loan. A Student may only return their own loans.
type ReturnInput struct {
	BorrowID    string
	ClaimedFine *decimal.Decimal
	Role        string
	RequesterID string
}

// BorrowFilter narrows ListBorrows. A Student caller only ever sees their
// own records, whatever UserID says.
type BorrowFilter struct {
	UserID      string
	Status      string
	Role        string
	RequesterID string
}

// BorrowView is a record joined with its book and user on read. Book or User
// is nil when the referenced entity was deleted.
type BorrowView struct {
	domain.BorrowRecord
	Status        domain.BorrowStatus `json:"status"`
	DaysOverdue   int                 `json:"daysOverdue"`
	ProjectedFine *decimal.Decimal    `json:"projectedFine,omitempty"`
	Book          *domain.Book        `json:"book,omitempty"`
	User          *domain.User        `json:"user,omitempty"`
}

type PopularBook struct {
	Book        domain.Book `json:"book"`
	BorrowCount int         `json:"borrowCount"`
}

// DashboardStats counts copies, not titles. TotalFines only includes fines
// finalized at return.
type DashboardStats struct {
	TotalBooks     int             `json:"totalBooks"`
	AvailableBooks int             `json:"availableBooks"`
	ActiveBorrows  int             `json:"activeBorrows"`
	OverdueCount   int             `json:"overdueCount"`
	LowStockCount  int             `json:"lowStockCount"`
	TotalFines     decimal.Decimal `json:"totalFines"`
	StudentCount   int             `json:"studentCount"`
}

type LendingService interface {
	Borrow(ctx context.Context, input BorrowInput) (*BorrowView, error)
	Return(ctx context.Context, input ReturnInput) (*BorrowView, error)
	ListBorrows(ctx context.Context, filter BorrowFilter) ([]BorrowView, error)
	ListOverdue(ctx context.Context) ([]BorrowView, error)
	ListLowStock(ctx context.Context) ([]domain.Book, error)
	RankPopular(ctx context.Context, limit int) ([]PopularBook, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

// Inventory event kinds.
const (
	InventoryBorrowed = "borrowed"
	InventoryReturned = "returned"
	InventoryEdited   = "edited"
)

// InventoryEvent announces that a book's available count may have changed.
type InventoryEvent struct {
	Kind   string
	BookID string
	At     time.Time
}

// InventoryPublisher hands events to asynchronous consumers without blocking.
type InventoryPublisher interface {
	Publish(event InventoryEvent)
}

// InventoryEventHandler consumes one event.
type InventoryEventHandler interface {
	Process(ctx context.Context, event InventoryEvent) error
}

// AlertDeduper reports whether an alert for key has not been raised yet on day
// and marks it raised.
type AlertDeduper interface {
	FirstOnDay(ctx context.Context, key string, day domain.Date) (bool, error)
}
