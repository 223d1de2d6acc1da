package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/middleware"
	"github.com/iliyamo/event-checkin/internal/service"
)

// statusFor maps a service error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrBadRequest), errors.Is(err, service.ErrCapacityExceeded):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders every error as {"message": ...}.  Classified
// service errors keep their message; echo errors keep theirs; anything
// else is logged with the request id and hidden behind a generic 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := "internal server error"

		var he *echo.HTTPError
		if m, ok := service.Message(err); ok {
			status, msg = statusFor(err), m
		} else if errors.As(err, &he) {
			status = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			} else {
				msg = fmt.Sprint(he.Message)
			}
		} else {
			log.Error("unhandled error",
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"message": msg})
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

func badRequest(msg string) error {
	return &service.Error{Kind: service.ErrBadRequest, Message: msg}
}

// bind decodes the request body into v and runs struct validation.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return badRequest("invalid body")
	}
	if err := c.Validate(v); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

// caller returns the principal set by the auth middleware.
func caller(c echo.Context) (auth.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, &service.Error{Kind: service.ErrUnauthorized, Message: "Authorization required"}
	}
	return p, nil
}
