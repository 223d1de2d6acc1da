package model

// Event lifecycle states.
const (
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
)

// ValidEventStatus reports whether s is a known event state.
func ValidEventStatus(s string) bool {
	switch s {
	case EventUpcoming, EventOngoing, EventCompleted:
		return true
	}
	return false
}

// Event is something attendees register for.  AttendeesCount is a cached
// count of the tickets currently held for the event; only the ticket
// engine writes it, in the same store update that adds or removes a
// ticket.  Capacity 0 means unlimited.
type Event struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Date           string `json:"date"` // ISO-8601 instant
	Location       string `json:"location"`
	Capacity       int    `json:"capacity"`
	AttendeesCount int    `json:"attendeesCount"`
	Status         string `json:"status"`
}

// IsFull returns true when a capacity is set and every slot is taken.
func (e *Event) IsFull() bool {
	return e.Capacity > 0 && e.AttendeesCount >= e.Capacity
}
