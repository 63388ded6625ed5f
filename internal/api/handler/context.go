package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Context keys set by middleware.Auth.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

type principal struct {
	UserID string
	Role   string
}

// ctxPrincipal extracts the claims injected by the Auth middleware. Both
// values must be present: a token without a subject cannot own anything.
func ctxPrincipal(c echo.Context) (principal, error) {
	role, _ := c.Get(CtxRole).(string)
	userID, _ := c.Get(CtxUserID).(string)
	if role == "" || userID == "" {
		return principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return principal{UserID: userID, Role: role}, nil
}
