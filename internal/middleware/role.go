package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole aborts with 403 unless the authenticated caller holds one of
// roles.  It must run after Auth; without a principal it answers 401.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return jsonError(c, http.StatusUnauthorized, "Authorization required")
			}
			if !p.HasRole(roles...) {
				return jsonError(c, http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}
