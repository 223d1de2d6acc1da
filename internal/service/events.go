package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/store"
)

// EventInput carries event fields.  On create, nil means default; on
// update, nil means unchanged.
type EventInput struct {
	Title       *string
	Description *string
	Date        *string
	Location    *string
	Capacity    *int
	Status      *string
}

// dateLayouts are accepted for Event.Date.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func validDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// EventService manages the event catalog.
type EventService struct {
	store *store.Store
}

// NewEventService returns an EventService.
func NewEventService(st *store.Store) *EventService {
	return &EventService{store: st}
}

// Create adds an event.  Capacity 0 means unlimited; status defaults to
// upcoming.
func (s *EventService) Create(ctx context.Context, in EventInput) (model.Event, error) {
	ev := model.Event{ID: uuid.NewString(), Status: model.EventUpcoming}
	if err := applyEventInput(&ev, in); err != nil {
		return model.Event{}, err
	}
	if ev.Title == "" {
		return model.Event{}, badRequest("title is required")
	}
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		snap.Events = append(snap.Events, ev)
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id string) (model.Event, error) {
	var ev model.Event
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		e := snap.Event(id)
		if e == nil {
			return notFound("event not found")
		}
		ev = *e
		return nil
	})
	return ev, err
}

// List returns all events in creation order.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		out = append([]model.Event{}, snap.Events...)
		return nil
	})
	return out, err
}

// Update merges the supplied fields into an event.  The attendee counter
// is not reachable from here, and capacity may not drop below the number
// of tickets already issued.
func (s *EventService) Update(ctx context.Context, id string, in EventInput) (model.Event, error) {
	var updated model.Event
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		e := snap.Event(id)
		if e == nil {
			return notFound("event not found")
		}
		next := *e
		if err := applyEventInput(&next, in); err != nil {
			return err
		}
		if next.Title == "" {
			return badRequest("title is required")
		}
		if next.Capacity > 0 && next.Capacity < next.AttendeesCount {
			return conflict("capacity is below the number of registered attendees")
		}
		*e = next
		updated = next
		return nil
	})
	return updated, err
}

// Delete removes an event.  Events that still hold tickets are refused.
func (s *EventService) Delete(ctx context.Context, id string) error {
	return s.store.Update(ctx, func(snap *store.Snapshot) error {
		if snap.Event(id) == nil {
			return notFound("event not found")
		}
		if n := snap.CountTickets(id); n > 0 {
			return conflict("event has registered tickets; cancel them first")
		}
		snap.RemoveEvent(id)
		return nil
	})
}

func applyEventInput(ev *model.Event, in EventInput) error {
	if in.Title != nil {
		ev.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Date != nil {
		d := strings.TrimSpace(*in.Date)
		if d != "" && !validDate(d) {
			return badRequest("date must be an ISO-8601 timestamp")
		}
		ev.Date = d
	}
	if in.Location != nil {
		ev.Location = strings.TrimSpace(*in.Location)
	}
	if in.Capacity != nil {
		if *in.Capacity < 0 {
			return badRequest("capacity cannot be negative")
		}
		ev.Capacity = *in.Capacity
	}
	if in.Status != nil {
		if !model.ValidEventStatus(*in.Status) {
			return badRequest("status must be upcoming, ongoing or completed")
		}
		ev.Status = *in.Status
	}
	return nil
}
