// Package auth holds the identity primitives of the service: the typed
// principal attached to every authenticated request, session tokens,
// password hashing and the ticket ownership rule.
package auth

import (
	"errors"
	"strings"

	"github.com/iliyamo/event-checkin/internal/model"
)

// Principal is the authenticated identity behind a request.  Role is one
// of model.RoleAdmin, model.RoleOrganizer or model.RoleAttendee; Subject
// is the user or attendee id.
type Principal struct {
	Subject  string
	Role     string
	Email    string
	Username string
}

// IsStaff reports whether p is an admin or organizer.
func (p Principal) IsStaff() bool { return model.IsStaffRole(p.Role) }

// IsAdmin reports whether p is an admin.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// IsAttendee reports whether p is a self-service attendee.
func (p Principal) IsAttendee() bool { return p.Role == model.RoleAttendee }

// HasRole reports whether p holds any of roles.
func (p Principal) HasRole(roles ...string) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// OwnsTicket applies the ownership rule: an attendee owns the tickets
// issued to its id, a staff member owns the tickets whose email equals its
// own (non-empty) email.  With adminOverride set, admins own every ticket.
func OwnsTicket(p Principal, t *model.Ticket, adminOverride bool) bool {
	switch {
	case p.IsAttendee():
		return t.AttendeeID != "" && p.Subject == t.AttendeeID
	case p.IsStaff():
		if adminOverride && p.IsAdmin() {
			return true
		}
		return p.Email != "" && p.Email == t.Email
	}
	return false
}

var (
	// ErrMissingAuth means the request carried no Authorization header.
	ErrMissingAuth = errors.New("authorization required")
	// ErrBadAuthFormat means the header was not "Bearer <token>".
	ErrBadAuthFormat = errors.New("invalid auth format")
)

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuth
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrBadAuthFormat
	}
	return parts[1], nil
}
