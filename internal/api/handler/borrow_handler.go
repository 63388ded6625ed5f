package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shelfmark/library-api/internal/core/ports"
)

// BorrowHandler serves loans. Who may act on whose loans is decided by the
// lending service from the caller's role and id.
type BorrowHandler struct {
	service ports.LendingService
}

func NewBorrowHandler(service ports.LendingService) *BorrowHandler {
	return &BorrowHandler{service: service}
}

// List handles GET /borrows.
//
// @Summary      List loans
// @Description  Students only ever see their own loans.
// @Tags         borrows
// @Produce      json
// @Security     BearerAuth
// @Param        userId  query     string  false  "Filter by borrower"
// @Param        status  query     string  false  "active, overdue or returned"
// @Success      200     {array}   ports.BorrowView
// @Failure      400     {object}  errorResponse
// @Router       /borrows [get]
func (h *BorrowHandler) List(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListBorrows(c.Request().Context(), ports.BorrowFilter{
		UserID:      c.QueryParam("userId"),
		Status:      c.QueryParam("status"),
		Role:        p.Role,
		RequesterID: p.UserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// Create handles POST /borrows.
//
// @Summary      Borrow a copy
// @Description  userId defaults to the caller. Students may only borrow for themselves.
// @Tags         borrows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      borrowRequest  true  "Loan"
// @Success      201   {object}  ports.BorrowView
// @Failure      400   {object}  errorResponse  "validation failed or no copy available"
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /borrows [post]
func (h *BorrowHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req borrowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.service.Borrow(c.Request().Context(), ports.BorrowInput{
		BookID:      req.BookID,
		UserID:      req.UserID,
		Role:        p.Role,
		RequesterID: p.UserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, view)
}

// Return handles PUT /borrows/:id/return.
//
// @Summary      Return a copy
// @Description  The fine is computed server-side; a client-supplied fine is ignored.
// @Tags         borrows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true   "Borrow id"
// @Param        body  body      returnRequest  false  "Client fine estimate"
// @Success      200   {object}  ports.BorrowView
// @Failure      403   {object}  errorResponse  "student returning another user's loan"
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse  "already returned"
// @Router       /borrows/{id}/return [put]
func (h *BorrowHandler) Return(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req returnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	view, err := h.service.Return(c.Request().Context(), ports.ReturnInput{
		BorrowID:    c.Param("id"),
		ClaimedFine: req.Fine,
		Role:        p.Role,
		RequesterID: p.UserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}
