package domain

import "github.com/shopspring/decimal"

// BorrowStatus is derived from a record and a reference day; it is never stored.
type BorrowStatus string

const (
	StatusActive   BorrowStatus = "active"
	StatusOverdue  BorrowStatus = "overdue"
	StatusReturned BorrowStatus = "returned"
)

func ValidBorrowStatus(s string) bool {
	switch BorrowStatus(s) {
	case StatusActive, StatusOverdue, StatusReturned:
		return true
	}
	return false
}

// BorrowRecord is one loan of one copy. A record moves from active to
// returned exactly once; ReturnDate and Fine are set together at that point.
type BorrowRecord struct {
	ID         string           `json:"id"`
	BookID     string           `json:"bookId"`
	UserID     string           `json:"userId"`
	BorrowDate Date             `json:"borrowDate"`
	DueDate    Date             `json:"dueDate"`
	ReturnDate *Date            `json:"returnDate,omitempty"`
	Fine       *decimal.Decimal `json:"fine,omitempty"`
}

// Active reports whether the copy is still out.
func (r BorrowRecord) Active() bool { return r.ReturnDate == nil }

// OverdueOn reports whether the record is active and past due on day.
func (r BorrowRecord) OverdueOn(day Date) bool {
	return r.Active() && r.DueDate.Before(day)
}

// DaysOverdue returns how many days past due the record is on day, or 0.
func (r BorrowRecord) DaysOverdue(day Date) int {
	if !r.OverdueOn(day) {
		return 0
	}
	return r.DueDate.DaysUntil(day)
}

// StatusOn classifies the record relative to day.
func (r BorrowRecord) StatusOn(day Date) BorrowStatus {
	switch {
	case !r.Active():
		return StatusReturned
	case r.OverdueOn(day):
		return StatusOverdue
	default:
		return StatusActive
	}
}

// FinalizedFine returns the fine fixed at return, or zero for active records.
func (r BorrowRecord) FinalizedFine() decimal.Decimal {
	if r.Fine == nil {
		return decimal.Zero
	}
	return *r.Fine
}

// ComputeFine charges finePerDay for every whole calendar day asOf is past due.
// Returning on or before the due date costs nothing.
func ComputeFine(due, asOf Date, finePerDay decimal.Decimal) decimal.Decimal {
	daysLate := due.DaysUntil(asOf)
	if daysLate <= 0 {
		return decimal.Zero
	}
	return finePerDay.Mul(decimal.NewFromInt(int64(daysLate)))
}
