// Package middleware holds the echo middleware shared by the HTTP
// routes: authentication, role checks, rate limiting, response caching,
// request logging and request validation.
package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/auth"
)

const principalKey = "principal"

// Authenticator verifies a raw bearer token.  The error text is shown to
// the client, so implementations return client-safe messages.
type Authenticator interface {
	Authenticate(raw string) (auth.Principal, error)
}

// Auth returns a middleware that requires a valid Bearer token and stores
// the resulting Principal in the context.  Handlers read it back with
// PrincipalFrom; the token is never parsed twice.
func Auth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := auth.ParseBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return jsonError(c, http.StatusUnauthorized, bearerMessage(err))
			}
			p, err := a.Authenticate(raw)
			if err != nil {
				return jsonError(c, http.StatusUnauthorized, err.Error())
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// OptionalAuth stores a Principal when the request carries a valid Bearer
// token and otherwise lets the request through anonymously.
func OptionalAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := auth.ParseBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if err == nil {
				if p, err := a.Authenticate(raw); err == nil {
					c.Set(principalKey, p)
				}
			}
			return next(c)
		}
	}
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}

func bearerMessage(err error) string {
	if errors.Is(err, auth.ErrMissingAuth) {
		return "Authorization required"
	}
	return "Invalid auth format"
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}
