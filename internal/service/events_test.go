package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-checkin/internal/model"
)

func TestEventLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.events.Create(ctx, EventInput{Title: ptr("Conf"), Date: ptr("2026-09-01T09:00:00Z"), Location: ptr("Berlin")})
	require.NoError(t, err)
	assert.Equal(t, model.EventUpcoming, ev.Status)
	assert.Zero(t, ev.Capacity)
	assert.Zero(t, ev.AttendeesCount)

	got, err := f.events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	updated, err := f.events.Update(ctx, ev.ID, EventInput{Status: ptr(model.EventOngoing), Capacity: ptr(50)})
	require.NoError(t, err)
	assert.Equal(t, "Conf", updated.Title)
	assert.Equal(t, "Berlin", updated.Location)
	assert.Equal(t, 50, updated.Capacity)
	assert.Equal(t, model.EventOngoing, updated.Status)

	list, err := f.events.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.events.Delete(ctx, ev.ID))
	_, err = f.events.Get(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.events.Delete(ctx, ev.ID), ErrNotFound)
}

func TestEventValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   EventInput
	}{
		{"missing title", EventInput{}},
		{"blank title", EventInput{Title: ptr("  ")}},
		{"bad status", EventInput{Title: ptr("x"), Status: ptr("cancelled")}},
		{"negative capacity", EventInput{Title: ptr("x"), Capacity: ptr(-1)}},
		{"bad date", EventInput{Title: ptr("x"), Date: ptr("next tuesday")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.events.Create(ctx, tc.in)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}

	_, err := f.events.Update(ctx, "missing", EventInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventCapacityAndDeleteGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 3)
	for _, email := range []string{"a@x.io", "b@x.io"} {
		_, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "N", Email: email}, nil)
		require.NoError(t, err)
	}

	_, err := f.events.Update(ctx, ev.ID, EventInput{Capacity: ptr(1)})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.events.Update(ctx, ev.ID, EventInput{Capacity: ptr(0)})
	assert.NoError(t, err, "unlimited is always allowed")

	assert.ErrorIs(t, f.events.Delete(ctx, ev.ID), ErrConflict)

	got, err := f.events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AttendeesCount)
}
