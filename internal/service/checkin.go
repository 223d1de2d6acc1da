package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/store"
)

// CheckInService moves tickets from issued to checked-in.  The move is
// one-way.
type CheckInService struct {
	store *store.Store
	now   func() time.Time
}

// NewCheckInService returns a CheckInService.  now may be nil.
func NewCheckInService(st *store.Store, now func() time.Time) *CheckInService {
	if now == nil {
		now = time.Now
	}
	return &CheckInService{store: st, now: now}
}

// CheckIn marks a ticket as used.  Only staff may check tickets in, and
// a ticket can be checked in once.
func (s *CheckInService) CheckIn(ctx context.Context, ticketID string, caller auth.Principal) (model.Ticket, error) {
	if !caller.IsStaff() {
		return model.Ticket{}, forbidden("staff only")
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return model.Ticket{}, badRequest("ticketId is required")
	}
	var out model.Ticket
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		t := snap.Ticket(ticketID)
		if t == nil {
			return notFound("ticket not found")
		}
		if t.CheckedIn() {
			return conflict("ticket already checked in")
		}
		at := s.now().UTC()
		t.Status = model.TicketCheckedIn
		t.CheckedInAt = &at
		out = *t
		return nil
	})
	return out, err
}
