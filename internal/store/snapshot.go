// Package store holds the durable record set of the service and the
// backends that persist it.  Every mutation reads the full snapshot,
// changes it in memory and writes it back as one unit.
package store

import "github.com/iliyamo/event-checkin/internal/model"

// Snapshot is the complete persisted state: four record collections.
type Snapshot struct {
	Users     []model.User     `json:"users"`
	Attendees []model.Attendee `json:"attendees"`
	Events    []model.Event    `json:"events"`
	Tickets   []model.Ticket   `json:"tickets"`
}

// normalize replaces nil collections with empty ones so encoded snapshots
// always carry all four keys.
func (s *Snapshot) normalize() {
	if s.Users == nil {
		s.Users = []model.User{}
	}
	if s.Attendees == nil {
		s.Attendees = []model.Attendee{}
	}
	if s.Events == nil {
		s.Events = []model.Event{}
	}
	if s.Tickets == nil {
		s.Tickets = []model.Ticket{}
	}
}

// Reconcile recomputes every event's AttendeesCount from the ticket set and
// reports whether any counter had drifted.
func (s *Snapshot) Reconcile() bool {
	counts := make(map[string]int, len(s.Events))
	for _, t := range s.Tickets {
		counts[t.EventID]++
	}
	drift := false
	for i := range s.Events {
		ev := &s.Events[i]
		if ev.AttendeesCount != counts[ev.ID] {
			ev.AttendeesCount = counts[ev.ID]
			drift = true
		}
	}
	return drift
}

// Event returns a pointer into s for the event with id, or nil.
func (s *Snapshot) Event(id string) *model.Event {
	for i := range s.Events {
		if s.Events[i].ID == id {
			return &s.Events[i]
		}
	}
	return nil
}

// RemoveEvent deletes the event with id and reports whether it existed.
func (s *Snapshot) RemoveEvent(id string) bool {
	for i := range s.Events {
		if s.Events[i].ID == id {
			s.Events = append(s.Events[:i], s.Events[i+1:]...)
			return true
		}
	}
	return false
}

// Ticket returns a pointer into s for the ticket with id, or nil.
func (s *Snapshot) Ticket(id string) *model.Ticket {
	for i := range s.Tickets {
		if s.Tickets[i].ID == id {
			return &s.Tickets[i]
		}
	}
	return nil
}

// RemoveTicket deletes the ticket with id and returns the removed record.
func (s *Snapshot) RemoveTicket(id string) (model.Ticket, bool) {
	for i := range s.Tickets {
		if s.Tickets[i].ID == id {
			t := s.Tickets[i]
			s.Tickets = append(s.Tickets[:i], s.Tickets[i+1:]...)
			return t, true
		}
	}
	return model.Ticket{}, false
}

// TicketByEventAndEmail finds the ticket an email holds for an event.
// Emails compare case-sensitively, as stored.
func (s *Snapshot) TicketByEventAndEmail(eventID, email string) *model.Ticket {
	for i := range s.Tickets {
		if s.Tickets[i].EventID == eventID && s.Tickets[i].Email == email {
			return &s.Tickets[i]
		}
	}
	return nil
}

// TicketsWhere returns copies of the tickets matching keep, in insertion order.
func (s *Snapshot) TicketsWhere(keep func(t *model.Ticket) bool) []model.Ticket {
	out := []model.Ticket{}
	for i := range s.Tickets {
		if keep(&s.Tickets[i]) {
			out = append(out, s.Tickets[i])
		}
	}
	return out
}

// CountTickets returns the number of tickets held for an event.
func (s *Snapshot) CountTickets(eventID string) int {
	n := 0
	for i := range s.Tickets {
		if s.Tickets[i].EventID == eventID {
			n++
		}
	}
	return n
}

// User returns a pointer into s for the staff user with id, or nil.
func (s *Snapshot) User(id string) *model.User {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// UserByUsername looks a staff user up by login name.
func (s *Snapshot) UserByUsername(username string) *model.User {
	for i := range s.Users {
		if s.Users[i].Username == username {
			return &s.Users[i]
		}
	}
	return nil
}

// UserByEmail looks a staff user up by email.  Empty emails never match.
func (s *Snapshot) UserByEmail(email string) *model.User {
	if email == "" {
		return nil
	}
	for i := range s.Users {
		if s.Users[i].Email == email {
			return &s.Users[i]
		}
	}
	return nil
}

// Attendee returns a pointer into s for the attendee with id, or nil.
func (s *Snapshot) Attendee(id string) *model.Attendee {
	for i := range s.Attendees {
		if s.Attendees[i].ID == id {
			return &s.Attendees[i]
		}
	}
	return nil
}

// AttendeeByEmail looks an attendee up by email.
func (s *Snapshot) AttendeeByEmail(email string) *model.Attendee {
	if email == "" {
		return nil
	}
	for i := range s.Attendees {
		if s.Attendees[i].Email == email {
			return &s.Attendees[i]
		}
	}
	return nil
}
