package service

import (
	"context"

	"github.com/iliyamo/event-checkin/internal/queue"
)

// Notifier publishes notification events after a change commits.
// queue.Publisher and queue.LogPublisher implement it.
type Notifier interface {
	TicketIssued(ctx context.Context, ev queue.TicketIssuedEvent) error
	Announcement(ctx context.Context, ev queue.AnnouncementEvent) error
}

type nopNotifier struct{}

func (nopNotifier) TicketIssued(context.Context, queue.TicketIssuedEvent) error { return nil }
func (nopNotifier) Announcement(context.Context, queue.AnnouncementEvent) error { return nil }
