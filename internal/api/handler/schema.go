package handler

import (
	"github.com/shopspring/decimal"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

// --- Books ---

// bookRequest is the body of POST and PUT /books. Any "available" field the
// client sends is ignored.
type bookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Category    string `json:"category"`
	ISBN        string `json:"isbn"`
	Quantity    int    `json:"quantity" validate:"min=0"`
	Publisher   string `json:"publisher"`
	Year        int    `json:"year" validate:"min=0"`
	Description string `json:"description"`
	CoverURL    string `json:"coverUrl" validate:"omitempty,url"`
}

func (r bookRequest) toInput() ports.BookInput {
	return ports.BookInput{
		Title:       r.Title,
		Author:      r.Author,
		Category:    r.Category,
		ISBN:        r.ISBN,
		Quantity:    r.Quantity,
		Publisher:   r.Publisher,
		Year:        r.Year,
		Description: r.Description,
		CoverURL:    r.CoverURL,
	}
}

// --- Users ---

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"required,oneof=Admin Student"`
}

type updateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"required,oneof=Admin Student"`
}

// --- Borrows ---

type borrowRequest struct {
	BookID string `json:"bookId" validate:"required"`
	UserID string `json:"userId"`
}

type returnRequest struct {
	Fine *decimal.Decimal `json:"fine,omitempty"`
}

// --- Settings ---

type settingsRequest struct {
	LowStockThreshold   *int             `json:"lowStockThreshold" validate:"required,min=0"`
	BorrowingPeriodDays *int             `json:"borrowingPeriodDays" validate:"required,min=1"`
	FinePerDay          *decimal.Decimal `json:"finePerDay" validate:"required"`
}

func (r settingsRequest) toDomain() domain.Settings {
	return domain.Settings{
		LowStockThreshold:   *r.LowStockThreshold,
		BorrowingPeriodDays: *r.BorrowingPeriodDays,
		FinePerDay:          *r.FinePerDay,
	}
}

// --- Shared ---

type errorResponse struct {
	Error string `json:"error"`
}
