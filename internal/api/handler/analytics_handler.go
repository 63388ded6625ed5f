package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

const maxPopularLimit = 100

type AnalyticsHandler struct {
	service ports.LendingService
}

func NewAnalyticsHandler(service ports.LendingService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Stats handles GET /analytics/stats.
//
// @Summary      Dashboard counters
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.DashboardStats
// @Router       /analytics/stats [get]
func (h *AnalyticsHandler) Stats(c echo.Context) error {
	stats, err := h.service.DashboardStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Overdue handles GET /analytics/overdue.
//
// @Summary      Overdue loans with projected fines
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  ports.BorrowView
// @Router       /analytics/overdue [get]
func (h *AnalyticsHandler) Overdue(c echo.Context) error {
	views, err := h.service.ListOverdue(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// LowStock handles GET /analytics/low-stock.
//
// @Summary      Titles at or below the low-stock threshold
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Book
// @Router       /analytics/low-stock [get]
func (h *AnalyticsHandler) LowStock(c echo.Context) error {
	books, err := h.service.ListLowStock(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, books)
}

// Popular handles GET /analytics/popular.
//
// @Summary      Most borrowed titles
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Number of titles (default 10, max 100)"
// @Success      200    {array}   ports.PopularBook
// @Failure      400    {object}  errorResponse
// @Router       /analytics/popular [get]
func (h *AnalyticsHandler) Popular(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPopularLimit {
			return domain.NewValidationError("limit", "must be an integer between 1 and 100")
		}
		limit = n
	}

	ranked, err := h.service.RankPopular(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ranked)
}
