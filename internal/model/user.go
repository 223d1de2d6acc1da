package model

// Role names carried in session tokens and stored on staff accounts.
const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
	RoleAttendee  = "attendee"
)

// IsStaffRole reports whether role belongs to a staff account (admin or
// organizer).  Attendees are not staff.
func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleOrganizer
}

// User represents a staff principal (admin or organizer).  Staff accounts
// are created by an admin or by the bootstrap seed and are never deleted;
// an admin disables them by clearing Active instead.
//
// Fields:
//
//	ID           – opaque unique identifier.
//	Username     – unique login name.
//	Email        – optional, unique when present; used for ticket ownership.
//	PasswordHash – bcrypt hash of the password.
//	Role         – admin or organizer.
//	Active       – disabled accounts cannot log in.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"`
	Active       bool   `json:"active"`
}

// UserView is the public projection of a User returned by the API.
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

// View strips the password hash from u.
func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, Active: u.Active}
}

// Attendee is a self-service principal created via signup.  The email is
// unique across attendees.  Name and company act as defaults for new
// registrations; tickets copy them at issuance and never read them again.
type Attendee struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Company      string `json:"company"`
	PasswordHash string `json:"passwordHash"`
}

// AttendeeView is the public projection of an Attendee.
type AttendeeView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// View strips the password hash from a.
func (a Attendee) View() AttendeeView {
	return AttendeeView{ID: a.ID, Name: a.Name, Email: a.Email, Company: a.Company}
}
