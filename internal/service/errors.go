// Package service holds the business operations of the registration and
// check-in service.  Handlers translate HTTP into calls here and map the
// returned error kinds onto status codes.
package service

import "errors"

// Error kinds.  Every caller-facing failure wraps exactly one of these;
// anything else is an internal error.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// Error is a classified failure with a message safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func badRequest(msg string) error   { return newError(ErrBadRequest, msg) }
func unauthorized(msg string) error { return newError(ErrUnauthorized, msg) }
func forbidden(msg string) error    { return newError(ErrForbidden, msg) }
func notFound(msg string) error     { return newError(ErrNotFound, msg) }
func conflict(msg string) error     { return newError(ErrConflict, msg) }

// Message returns the client-facing message of err when it is a
// classified Error, and ok=false otherwise.
func Message(err error) (msg string, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Message, true
	}
	return "", false
}
