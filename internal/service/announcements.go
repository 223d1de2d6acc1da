package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/queue"
	"github.com/iliyamo/event-checkin/internal/store"
)

// AnnouncementInput is a message to everyone registered for an event.
type AnnouncementInput struct {
	EventID string
	Subject string
	Message string
}

// AnnouncementService fans a message out to an event's registrants.
type AnnouncementService struct {
	store    *store.Store
	notifier Notifier
	now      func() time.Time
}

// NewAnnouncementService returns an AnnouncementService.
func NewAnnouncementService(st *store.Store, n Notifier) *AnnouncementService {
	if n == nil {
		n = nopNotifier{}
	}
	return &AnnouncementService{store: st, notifier: n, now: time.Now}
}

// Announce publishes in to the unique emails registered for the event and
// returns how many recipients it reached.
func (s *AnnouncementService) Announce(ctx context.Context, in AnnouncementInput, caller auth.Principal) (int, error) {
	if err := Authorize(caller, model.RoleOrganizer, model.RoleAdmin); err != nil {
		return 0, err
	}
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if in.EventID == "" || in.Subject == "" || in.Message == "" {
		return 0, badRequest("eventId, subject and message are required")
	}

	var (
		title      string
		recipients []string
	)
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		ev := snap.Event(in.EventID)
		if ev == nil {
			return notFound("event not found")
		}
		title = ev.Title
		seen := map[string]bool{}
		for _, t := range snap.TicketsWhere(func(t *model.Ticket) bool { return t.EventID == in.EventID }) {
			if t.Email != "" && !seen[t.Email] {
				seen[t.Email] = true
				recipients = append(recipients, t.Email)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, badRequest("no attendees registered for this event")
	}

	sender := caller.Username
	if sender == "" {
		sender = caller.Email
	}
	err = s.notifier.Announcement(ctx, queue.AnnouncementEvent{
		EventID:    in.EventID,
		EventTitle: title,
		Subject:    in.Subject,
		Message:    in.Message,
		Recipients: recipients,
		SentBy:     sender,
		SentAt:     s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return 0, fmt.Errorf("publish announcement: %w", err)
	}
	return len(recipients), nil
}
