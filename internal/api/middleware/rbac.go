package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/shelfmark/library-api/internal/core/domain"
)

// RBAC lets the request through only when the authenticated role is one of
// allowedRoles (domain.RoleAdmin, domain.RoleStudent). It must run after Auth.
// Rejections return domain.ErrForbidden so the central error handler renders
// them like a service-level refusal.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role, _ := c.Get("role").(string); !allowed[role] {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
