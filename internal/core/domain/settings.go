package domain

import "github.com/shopspring/decimal"

func init() {
	// Money goes over the wire as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	DefaultLowStockThreshold   = 3
	DefaultBorrowingPeriodDays = 14
)

// DefaultFinePerDay is the fine charged per overdue day when settings were never written.
var DefaultFinePerDay = decimal.NewFromInt(1)

// Settings holds the library-wide lending policy.
type Settings struct {
	LowStockThreshold   int             `json:"lowStockThreshold"`
	BorrowingPeriodDays int             `json:"borrowingPeriodDays"`
	FinePerDay          decimal.Decimal `json:"finePerDay"`
}

func DefaultSettings() Settings {
	return Settings{
		LowStockThreshold:   DefaultLowStockThreshold,
		BorrowingPeriodDays: DefaultBorrowingPeriodDays,
		FinePerDay:          DefaultFinePerDay,
	}
}

// Validate checks threshold >= 0, period >= 1 and fine >= 0.
func (s Settings) Validate() error {
	if s.LowStockThreshold < 0 {
		return NewValidationError("lowStockThreshold", "must not be negative")
	}
	if s.BorrowingPeriodDays < 1 {
		return NewValidationError("borrowingPeriodDays", "must be at least 1")
	}
	if s.FinePerDay.IsNegative() {
		return NewValidationError("finePerDay", "must not be negative")
	}
	return nil
}
