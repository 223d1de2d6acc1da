package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/queue"
	"github.com/iliyamo/event-checkin/internal/store"
)

// RegisterInput is the registrant data for a new ticket.  For attendee
// callers, Email is replaced by the account email and empty Name or
// Company fall back to the profile.
type RegisterInput struct {
	Name    string
	Email   string
	Company string
}

// TicketPatch edits the registrant fields of a ticket.  Nil fields are
// left alone.
type TicketPatch struct {
	Name    *string
	Email   *string
	Company *string
}

var emailCheck = validator.New()

func validEmail(s string) bool { return emailCheck.Var(s, "required,email") == nil }

// TicketService issues, edits and cancels tickets.  All counter and
// capacity decisions run inside a single store update.
type TicketService struct {
	store         *store.Store
	notifier      Notifier
	log           *zap.Logger
	adminOverride bool
	now           func() time.Time
}

// TicketOption configures a TicketService.
type TicketOption func(*TicketService)

// WithNotifier sets where ticket.issued events go.
func WithNotifier(n Notifier) TicketOption {
	return func(s *TicketService) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) TicketOption {
	return func(s *TicketService) { s.log = l }
}

// WithAdminOverride lets admins edit and cancel any ticket.
func WithAdminOverride(on bool) TicketOption {
	return func(s *TicketService) { s.adminOverride = on }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TicketOption {
	return func(s *TicketService) { s.now = now }
}

// NewTicketService returns a TicketService.
func NewTicketService(st *store.Store, opts ...TicketOption) *TicketService {
	s := &TicketService{store: st, notifier: nopNotifier{}, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register issues a ticket for eventID.  caller is nil for anonymous
// registrations.  Validation, the duplicate check, the capacity check and
// the counter increment commit together or not at all.
func (s *TicketService) Register(ctx context.Context, eventID string, in RegisterInput, caller *auth.Principal) (model.Ticket, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Company = strings.TrimSpace(in.Company)

	var (
		issued model.Ticket
		event  model.Event
	)
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		t := model.Ticket{
			ID:      uuid.NewString(),
			EventID: eventID,
			Name:    in.Name,
			Email:   in.Email,
			Company: in.Company,
			Status:  model.TicketIssued,
		}
		if caller != nil && caller.IsAttendee() {
			t.AttendeeID = caller.Subject
			t.Email = caller.Email
			if a := snap.Attendee(caller.Subject); a != nil {
				if t.Name == "" {
					t.Name = a.Name
				}
				if t.Company == "" {
					t.Company = a.Company
				}
			}
		}
		if t.Name == "" || t.Email == "" {
			return badRequest("name and email are required")
		}
		if !validEmail(t.Email) {
			return badRequest("email must be a valid email")
		}

		ev := snap.Event(eventID)
		if ev == nil {
			return notFound("event not found")
		}
		if snap.TicketByEventAndEmail(eventID, t.Email) != nil {
			return conflict("already registered for this event")
		}
		if ev.IsFull() {
			return newError(ErrCapacityExceeded, "event is full")
		}

		t.EventTitle = ev.Title
		t.CreatedAt = s.now().UTC()
		snap.Tickets = append(snap.Tickets, t)
		ev.AttendeesCount++
		issued, event = t, *ev
		return nil
	})
	if err != nil {
		return model.Ticket{}, err
	}

	if err := s.notifier.TicketIssued(ctx, queue.TicketIssuedEvent{
		TicketID:      issued.ID,
		EventID:       event.ID,
		EventTitle:    event.Title,
		EventDate:     event.Date,
		EventLocation: event.Location,
		Name:          issued.Name,
		Email:         issued.Email,
		IssuedAt:      issued.CreatedAt.Format(time.RFC3339),
	}); err != nil {
		s.log.Warn("publish ticket.issued failed", zap.String("ticket_id", issued.ID), zap.Error(err))
	}
	return issued, nil
}

// UpdateTicket edits the registrant fields of a ticket the caller owns.
// Changing the email re-checks uniqueness within the event.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, patch TicketPatch, caller auth.Principal) (model.Ticket, error) {
	var updated model.Ticket
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		t := snap.Ticket(id)
		if t == nil {
			return notFound("ticket not found")
		}
		if !auth.OwnsTicket(caller, t, s.adminOverride) {
			return forbidden("not your ticket")
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return badRequest("name cannot be empty")
			}
			t.Name = name
		}
		if patch.Email != nil {
			email := strings.TrimSpace(*patch.Email)
			if email == "" {
				return badRequest("email cannot be empty")
			}
			if email != t.Email {
				if snap.TicketByEventAndEmail(t.EventID, email) != nil {
					return conflict("email already registered for this event")
				}
				t.Email = email
			}
		}
		if patch.Company != nil {
			t.Company = strings.TrimSpace(*patch.Company)
		}
		updated = *t
		return nil
	})
	return updated, err
}

// CancelTicket deletes a ticket the caller owns and frees its slot.
// Checked-in tickets are kept.
func (s *TicketService) CancelTicket(ctx context.Context, id string, caller auth.Principal) error {
	return s.store.Update(ctx, func(snap *store.Snapshot) error {
		t := snap.Ticket(id)
		if t == nil {
			return notFound("ticket not found")
		}
		if !auth.OwnsTicket(caller, t, s.adminOverride) {
			return forbidden("not your ticket")
		}
		if t.CheckedIn() {
			return conflict("ticket already checked in")
		}
		removed, _ := snap.RemoveTicket(id)
		if ev := snap.Event(removed.EventID); ev != nil && ev.AttendeesCount > 0 {
			ev.AttendeesCount--
		}
		return nil
	})
}

// Get returns one ticket.
func (s *TicketService) Get(ctx context.Context, id string) (model.Ticket, error) {
	var out model.Ticket
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		t := snap.Ticket(id)
		if t == nil {
			return notFound("ticket not found")
		}
		out = *t
		return nil
	})
	return out, err
}

// ListForEvent returns the tickets of an event.
func (s *TicketService) ListForEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	var out []model.Ticket
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		if snap.Event(eventID) == nil {
			return notFound("event not found")
		}
		out = snap.TicketsWhere(func(t *model.Ticket) bool { return t.EventID == eventID })
		return nil
	})
	return out, err
}

// ListForAttendee returns the tickets bound to an attendee account.
func (s *TicketService) ListForAttendee(ctx context.Context, attendeeID string) ([]model.Ticket, error) {
	return s.where(ctx, func(t *model.Ticket) bool { return attendeeID != "" && t.AttendeeID == attendeeID })
}

// ListForEmail returns the tickets registered under email.
func (s *TicketService) ListForEmail(ctx context.Context, email string) ([]model.Ticket, error) {
	return s.where(ctx, func(t *model.Ticket) bool { return email != "" && t.Email == email })
}

// ListMine returns the tickets the caller can act on: by account for
// attendees, by email for staff.
func (s *TicketService) ListMine(ctx context.Context, caller auth.Principal) ([]model.Ticket, error) {
	if caller.IsAttendee() {
		return s.ListForAttendee(ctx, caller.Subject)
	}
	return s.ListForEmail(ctx, caller.Email)
}

// FindByEventAndEmail returns the ticket email holds for an event.
func (s *TicketService) FindByEventAndEmail(ctx context.Context, eventID, email string) (model.Ticket, error) {
	var out model.Ticket
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		t := snap.TicketByEventAndEmail(eventID, email)
		if t == nil {
			return notFound("ticket not found")
		}
		out = *t
		return nil
	})
	return out, err
}

func (s *TicketService) where(ctx context.Context, keep func(*model.Ticket) bool) ([]model.Ticket, error) {
	var out []model.Ticket
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		out = snap.TicketsWhere(keep)
		return nil
	})
	return out, err
}
