package model

import "time"

// Ticket states.  A ticket only ever moves from issued to checked-in.
const (
	TicketIssued    = "issued"
	TicketCheckedIn = "checked-in"
)

// Ticket binds a registrant's contact details to one event and doubles as
// the check-in credential.  EventTitle, Name, Email and Company are
// snapshots taken at issuance.
//
// Fields:
//
//	ID          – opaque unique token, encoded in the QR code.
//	EventID     – event the ticket admits to.
//	AttendeeID  – owning attendee, empty for anonymous or staff-entered registrations.
//	Status      – issued or checked-in.
//	CreatedAt   – issuance time.
//	CheckedInAt – set once, on check-in.
type Ticket struct {
	ID          string     `json:"id"`
	EventID     string     `json:"eventId"`
	AttendeeID  string     `json:"attendeeId,omitempty"`
	EventTitle  string     `json:"eventTitle"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Company     string     `json:"company"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CheckedInAt *time.Time `json:"checkedInAt,omitempty"`
}

// CheckedIn reports whether the ticket has already been redeemed.
func (t *Ticket) CheckedIn() bool { return t.Status == TicketCheckedIn }

// TicketWithQR is a ticket plus a PNG data URL of its QR code.
type TicketWithQR struct {
	Ticket
	QR string `json:"qr,omitempty"`
}
