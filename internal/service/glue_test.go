package service

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/model"
)

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 0)

	a, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "Doe, Jane", Email: "jane@x.io"}, nil)
	require.NoError(t, err)
	b, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "Bob", Email: "bob@x.io"}, nil)
	require.NoError(t, err)
	_, err = f.checkin.CheckIn(ctx, b.ID, organizer)
	require.NoError(t, err)

	data, title, err := f.reports.ExportCSV(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Title, title)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Email", "Ticket ID", "Status", "Checked In At"}, rows[0])
	assert.Equal(t, []string{"Doe, Jane", "jane@x.io", a.ID, model.TicketIssued, ""}, rows[1])
	assert.Equal(t, model.TicketCheckedIn, rows[2][3])
	assert.Equal(t, "2026-05-01T09:00:00Z", rows[2][4])

	_, _, err = f.reports.ExportCSV(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnnounce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 0)
	in := AnnouncementInput{EventID: ev.ID, Subject: "Doors", Message: "Doors open at 9"}

	_, err := f.announce.Announce(ctx, in, organizer)
	assert.ErrorIs(t, err, ErrBadRequest, "no attendees yet")

	for _, email := range []string{"a@x.io", "b@x.io"} {
		_, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "N", Email: email}, nil)
		require.NoError(t, err)
	}

	n, err := f.announce.Announce(ctx, in, organizer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.notifier.announcements, 1)
	sent := f.notifier.announcements[0]
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, sent.Recipients)
	assert.Equal(t, ev.Title, sent.EventTitle)
	assert.Equal(t, "org", sent.SentBy)

	_, err = f.announce.Announce(ctx, in, auth.Principal{Subject: "a", Role: model.RoleAttendee})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.announce.Announce(ctx, AnnouncementInput{EventID: ev.ID}, admin)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = f.announce.Announce(ctx, AnnouncementInput{EventID: "missing", Subject: "s", Message: "m"}, admin)
	assert.ErrorIs(t, err, ErrNotFound)

	f.notifier.err = errors.New("broker down")
	_, err = f.announce.Announce(ctx, in, admin)
	require.Error(t, err)
	_, classified := Message(err)
	assert.False(t, classified)
}
