package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/store"
)

// Health reports liveness, and readiness of the store when st is set: a
// snapshot that cannot be loaded answers 503.
func Health(st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if st != nil {
			if err := st.View(c.Request().Context(), func(*store.Snapshot) error { return nil }); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
