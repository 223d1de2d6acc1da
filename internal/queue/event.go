// Package queue defines the notification messages exchanged over RabbitMQ
// and the publisher and consumer that move them.
package queue

// Queue names.  Both queues are durable.
const (
	TicketIssuedQueue = "ticket.issued"
	AnnouncementQueue = "event.announcement"
)

// TicketIssuedEvent is published after a registration commits.  It
// carries enough for a confirmation email without reading the store.
type TicketIssuedEvent struct {
	TicketID      string `json:"ticket_id"`
	EventID       string `json:"event_id"`
	EventTitle    string `json:"event_title"`
	EventDate     string `json:"event_date"`
	EventLocation string `json:"event_location"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	IssuedAt      string `json:"issued_at"`
}

// AnnouncementEvent is published when an organizer messages the
// registrants of an event.
type AnnouncementEvent struct {
	EventID    string   `json:"event_id"`
	EventTitle string   `json:"event_title"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
	SentBy     string   `json:"sent_by"`
	SentAt     string   `json:"sent_at"`
}
