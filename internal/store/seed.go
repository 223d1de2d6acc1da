package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/event-checkin/internal/model"
)

// SeedOptions controls the bootstrap records written by Seed.
type SeedOptions struct {
	AdminUsername     string
	AdminEmail        string
	AdminPasswordHash string
	// SampleEvent adds a demo event when the store holds no events.
	SampleEvent bool
}

// Seed makes sure an admin account exists (and carries an email) and,
// optionally, that the event list is not empty.  It reports whether
// anything was written.
func Seed(ctx context.Context, st *Store, opts SeedOptions) (bool, error) {
	if opts.AdminUsername == "" {
		opts.AdminUsername = "admin"
	}
	if opts.AdminEmail == "" {
		opts.AdminEmail = "admin@event.com"
	}
	wrote := false
	err := st.Update(ctx, func(s *Snapshot) error {
		if opts.SampleEvent && len(s.Events) == 0 {
			s.Events = append(s.Events, model.Event{
				ID:          "evt-1",
				Title:       "Community Tech Meetup",
				Description: "An evening of talks and networking.",
				Date:        "2026-03-12T18:00:00Z",
				Location:    "Community Hall",
				Capacity:    100,
				Status:      model.EventUpcoming,
			})
			wrote = true
		}
		if admin := s.UserByUsername(opts.AdminUsername); admin != nil {
			if admin.Email == "" && s.UserByEmail(opts.AdminEmail) == nil {
				admin.Email = opts.AdminEmail
				wrote = true
			}
		} else if opts.AdminPasswordHash != "" {
			s.Users = append(s.Users, model.User{
				ID:           uuid.NewString(),
				Username:     opts.AdminUsername,
				Email:        opts.AdminEmail,
				PasswordHash: opts.AdminPasswordHash,
				Role:         model.RoleAdmin,
				Active:       true,
			})
			wrote = true
		}
		return nil
	})
	return wrote, err
}
