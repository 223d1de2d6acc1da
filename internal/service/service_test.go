package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/queue"
	"github.com/iliyamo/event-checkin/internal/store"
)

type fakeNotifier struct {
	mu            sync.Mutex
	issued        []queue.TicketIssuedEvent
	announcements []queue.AnnouncementEvent
	err           error
}

func (f *fakeNotifier) TicketIssued(_ context.Context, ev queue.TicketIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, ev)
	return f.err
}

func (f *fakeNotifier) Announcement(_ context.Context, ev queue.AnnouncementEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.announcements = append(f.announcements, ev)
	return nil
}

type fixture struct {
	store    *store.Store
	backend  *store.MemoryBackend
	notifier *fakeNotifier
	auth     *AuthService
	events   *EventService
	tickets  *TicketService
	checkin  *CheckInService
	announce *AnnouncementService
	reports  *ReportService
	now      time.Time
}

func newFixture(t *testing.T, opts ...TicketOption) *fixture {
	t.Helper()
	backend := store.NewMemoryBackend()
	st, err := store.New(backend)
	require.NoError(t, err)
	f := &fixture{
		store:    st,
		backend:  backend,
		notifier: &fakeNotifier{},
		now:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.auth = NewAuthService(st, auth.NewTokens("test-secret", time.Hour), bcrypt.MinCost)
	f.events = NewEventService(st)
	f.tickets = NewTicketService(st, append([]TicketOption{WithNotifier(f.notifier), WithClock(clock)}, opts...)...)
	f.checkin = NewCheckInService(st, clock)
	f.announce = NewAnnouncementService(st, f.notifier)
	f.reports = NewReportService(st)
	return f
}

func (f *fixture) event(t *testing.T, capacity int) model.Event {
	t.Helper()
	title := "Gopher Day"
	ev, err := f.events.Create(context.Background(), EventInput{Title: &title, Capacity: &capacity})
	require.NoError(t, err)
	return ev
}

func (f *fixture) count(t *testing.T, eventID string) (counter, tickets int) {
	t.Helper()
	require.NoError(t, f.store.View(context.Background(), func(s *store.Snapshot) error {
		counter = s.Event(eventID).AttendeesCount
		tickets = s.CountTickets(eventID)
		return nil
	}))
	return counter, tickets
}

func ptr[T any](v T) *T { return &v }

var (
	organizer = auth.Principal{Subject: "u-org", Role: model.RoleOrganizer, Email: "org@example.com", Username: "org"}
	admin     = auth.Principal{Subject: "u-admin", Role: model.RoleAdmin, Email: "admin@event.com", Username: "admin"}
)

func TestRegister_IssuesTicketAndPublishes(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 10)

	tk, err := f.tickets.Register(context.Background(), ev.ID, RegisterInput{Name: " Ada ", Email: "ada@example.com", Company: "ACME"}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, "Ada", tk.Name)
	assert.Equal(t, ev.Title, tk.EventTitle)
	assert.Equal(t, model.TicketIssued, tk.Status)
	assert.Equal(t, f.now, tk.CreatedAt)
	assert.Empty(t, tk.AttendeeID)
	assert.Nil(t, tk.CheckedInAt)

	counter, tickets := f.count(t, ev.ID)
	assert.Equal(t, 1, counter)
	assert.Equal(t, 1, tickets)

	require.Len(t, f.notifier.issued, 1)
	assert.Equal(t, tk.ID, f.notifier.issued[0].TicketID)
	assert.Equal(t, "ada@example.com", f.notifier.issued[0].Email)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	ctx := context.Background()

	_, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Email: "a@x.io"}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "A", Email: "   "}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "A", Email: "not-an-email"}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = f.tickets.Register(ctx, "missing", RegisterInput{Name: "A", Email: "a@x.io"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegister_AttendeeIdentityWins(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	ctx := context.Background()

	sess, err := f.auth.SignUp(ctx, SignUpInput{Name: "Grace", Email: "grace@example.com", Company: "Navy", Password: "pw"})
	require.NoError(t, err)
	p, err := f.auth.Authenticate(sess.Token.Value)
	require.NoError(t, err)

	tk, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Email: "spoof@example.com"}, &p)
	require.NoError(t, err)
	assert.Equal(t, p.Subject, tk.AttendeeID)
	assert.Equal(t, "grace@example.com", tk.Email)
	assert.Equal(t, "Grace", tk.Name)
	assert.Equal(t, "Navy", tk.Company)
}

func TestRegister_AttendeeIgnoresMalformedBodyEmail(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	ctx := context.Background()

	sess, err := f.auth.SignUp(ctx, SignUpInput{Name: "Lin", Email: "lin@example.com", Password: "pw"})
	require.NoError(t, err)
	p, err := f.auth.Authenticate(sess.Token.Value)
	require.NoError(t, err)

	tk, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Email: "not-an-email"}, &p)
	require.NoError(t, err)
	assert.Equal(t, "lin@example.com", tk.Email)
}

func TestRegister_StaffCallerIsNotBound(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	tk, err := f.tickets.Register(context.Background(), ev.ID, RegisterInput{Name: "Walk In", Email: "walkin@example.com"}, &organizer)
	require.NoError(t, err)
	assert.Empty(t, tk.AttendeeID)
	assert.Equal(t, "walkin@example.com", tk.Email)
}

func TestRegister_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	ev := f.event(t, 0)

	_, err := f.tickets.Register(context.Background(), ev.ID, RegisterInput{Name: "A", Email: "a@x.io"}, nil)
	require.NoError(t, err)
	counter, _ := f.count(t, ev.ID)
	assert.Equal(t, 1, counter)
}

func TestRegister_FailedSaveLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	f.backend.FailSave = errors.New("disk full")

	_, err := f.tickets.Register(context.Background(), ev.ID, RegisterInput{Name: "A", Email: "a@x.io"}, nil)
	require.Error(t, err)
	_, isClassified := Message(err)
	assert.False(t, isClassified)

	f.backend.FailSave = nil
	counter, tickets := f.count(t, ev.ID)
	assert.Zero(t, counter)
	assert.Zero(t, tickets)
	assert.Empty(t, f.notifier.issued)
}

// no oversell under concurrent registration
func TestRegister_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	const capacity, attempts = 5, 40
	ev := f.event(t, capacity)

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		ok, full, others int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.tickets.Register(context.Background(), ev.ID, RegisterInput{
				Name:  "Guest",
				Email: "guest" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + "@example.com",
			}, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrCapacityExceeded):
				full++
			default:
				others++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, ok)
	assert.Equal(t, attempts-capacity, full)
	assert.Zero(t, others)
	counter, tickets := f.count(t, ev.ID)
	assert.Equal(t, capacity, counter)
	assert.Equal(t, capacity, tickets)
}

func TestRegister_ConcurrentDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		ok, conflicts int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tickets.Register(context.Background(), ev.ID, RegisterInput{Name: "Alice", Email: "alice@example.com"}, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 19, conflicts)
	_, tickets := f.count(t, ev.ID)
	assert.Equal(t, 1, tickets)
}

func TestRegister_LastSlotRace(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, email := range []string{"one@example.com", "two@example.com"} {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, errs[i] = f.tickets.Register(context.Background(), ev.ID, RegisterInput{Name: "N", Email: email}, nil)
		}(i, email)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrCapacityExceeded)
		msg, _ := Message(err)
		assert.Equal(t, "event is full", msg)
	}
	assert.Equal(t, 1, succeeded)
	counter, _ := f.count(t, ev.ID)
	assert.Equal(t, 1, counter)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	ctx := context.Background()
	in := RegisterInput{Name: "Alice", Email: "alice@example.com"}

	_, err := f.tickets.Register(ctx, ev.ID, in, nil)
	require.NoError(t, err)
	_, err = f.tickets.Register(ctx, ev.ID, in, nil)
	assert.ErrorIs(t, err, ErrConflict)

	_, tickets := f.count(t, ev.ID)
	assert.Equal(t, 1, tickets)
}

func TestCheckIn_Once(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	ctx := context.Background()
	tk, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "A", Email: "a@x.io"}, nil)
	require.NoError(t, err)

	out, err := f.checkin.CheckIn(ctx, tk.ID, organizer)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCheckedIn, out.Status)
	require.NotNil(t, out.CheckedInAt)
	assert.Equal(t, f.now, *out.CheckedInAt)

	f.now = f.now.Add(time.Hour)
	_, err = f.checkin.CheckIn(ctx, tk.ID, admin)
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := f.tickets.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCheckedIn, stored.Status)
	assert.Equal(t, out.CheckedInAt.Unix(), stored.CheckedInAt.Unix())
}

func TestCheckIn_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.checkin.CheckIn(ctx, "", organizer)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = f.checkin.CheckIn(ctx, "nope", organizer)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.checkin.CheckIn(ctx, "nope", auth.Principal{Subject: "a", Role: model.RoleAttendee})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCheckIn_ConcurrentSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	tk, err := f.tickets.Register(context.Background(), ev.ID, RegisterInput{Name: "A", Email: "a@x.io"}, nil)
	require.NoError(t, err)

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		ok, conflicts int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.checkin.CheckIn(context.Background(), tk.ID, organizer)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, conflicts)
}

func TestCancel_FreesSlot(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)
	ctx := context.Background()

	sess, err := f.auth.SignUp(ctx, SignUpInput{Name: "Dee", Email: "dee@example.com", Password: "pw"})
	require.NoError(t, err)
	p, err := f.auth.Authenticate(sess.Token.Value)
	require.NoError(t, err)

	tk, err := f.tickets.Register(ctx, ev.ID, RegisterInput{}, &p)
	require.NoError(t, err)
	before, _ := f.count(t, ev.ID)

	require.NoError(t, f.tickets.CancelTicket(ctx, tk.ID, p))
	after, tickets := f.count(t, ev.ID)
	assert.Equal(t, before-1, after)
	assert.Zero(t, tickets)

	_, err = f.tickets.Register(ctx, ev.ID, RegisterInput{}, &p)
	assert.NoError(t, err)
}

func TestCancel_CheckedInTicketIsKept(t *testing.T) {
	f := newFixture(t, WithAdminOverride(true))
	ev := f.event(t, 0)
	ctx := context.Background()
	tk, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "A", Email: "a@x.io"}, nil)
	require.NoError(t, err)
	_, err = f.checkin.CheckIn(ctx, tk.ID, organizer)
	require.NoError(t, err)

	err = f.tickets.CancelTicket(ctx, tk.ID, admin)
	assert.ErrorIs(t, err, ErrConflict)

	counter, tickets := f.count(t, ev.ID)
	assert.Equal(t, 1, tickets)
	assert.Equal(t, 1, counter)
	stored, err := f.tickets.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCheckedIn, stored.Status)
	assert.NotNil(t, stored.CheckedInAt)
}

func TestCounterMatchesTicketsAfterMixedOps(t *testing.T) {
	f := newFixture(t, WithAdminOverride(true))
	ev := f.event(t, 0)
	ctx := context.Background()

	var ids []string
	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io"} {
		tk, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "N", Email: email}, nil)
		require.NoError(t, err)
		ids = append(ids, tk.ID)
	}
	require.NoError(t, f.tickets.CancelTicket(ctx, ids[1], admin))
	require.NoError(t, f.tickets.CancelTicket(ctx, ids[3], admin))
	_, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "N", Email: "e@x.io"}, nil)
	require.NoError(t, err)

	counter, tickets := f.count(t, ev.ID)
	assert.Equal(t, 3, tickets)
	assert.Equal(t, tickets, counter)
}

func TestOwnershipRules(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	ctx := context.Background()

	owner, err := f.auth.SignUp(ctx, SignUpInput{Name: "Owner", Email: "owner@example.com", Password: "pw"})
	require.NoError(t, err)
	ownerP, err := f.auth.Authenticate(owner.Token.Value)
	require.NoError(t, err)
	other, err := f.auth.SignUp(ctx, SignUpInput{Name: "Other", Email: "other@example.com", Password: "pw"})
	require.NoError(t, err)
	otherP, err := f.auth.Authenticate(other.Token.Value)
	require.NoError(t, err)

	tk, err := f.tickets.Register(ctx, ev.ID, RegisterInput{}, &ownerP)
	require.NoError(t, err)
	staffTicket, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "Org", Email: organizer.Email}, nil)
	require.NoError(t, err)

	_, err = f.tickets.UpdateTicket(ctx, tk.ID, TicketPatch{Company: ptr("X")}, otherP)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.tickets.CancelTicket(ctx, tk.ID, otherP), ErrForbidden)

	// staff email does not match
	_, err = f.tickets.UpdateTicket(ctx, tk.ID, TicketPatch{Company: ptr("X")}, organizer)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.tickets.UpdateTicket(ctx, tk.ID, TicketPatch{Company: ptr("X")}, admin)
	assert.ErrorIs(t, err, ErrForbidden, "no override unless configured")

	updated, err := f.tickets.UpdateTicket(ctx, staffTicket.ID, TicketPatch{Name: ptr("Organizer")}, organizer)
	require.NoError(t, err)
	assert.Equal(t, "Organizer", updated.Name)

	updated, err = f.tickets.UpdateTicket(ctx, tk.ID, TicketPatch{Company: ptr("Initech")}, ownerP)
	require.NoError(t, err)
	assert.Equal(t, "Initech", updated.Company)

	_, err = f.tickets.UpdateTicket(ctx, "missing", TicketPatch{}, ownerP)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminOverride(t *testing.T) {
	f := newFixture(t, WithAdminOverride(true))
	ev := f.event(t, 0)
	ctx := context.Background()
	tk, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "A", Email: "a@x.io"}, nil)
	require.NoError(t, err)

	_, err = f.tickets.UpdateTicket(ctx, tk.ID, TicketPatch{Company: ptr("X")}, organizer)
	assert.ErrorIs(t, err, ErrForbidden)
	require.NoError(t, f.tickets.CancelTicket(ctx, tk.ID, admin))
}

func TestUpdateTicket_EmailChangeKeepsUniqueness(t *testing.T) {
	f := newFixture(t, WithAdminOverride(true))
	ev := f.event(t, 0)
	ctx := context.Background()
	a, err := f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "A", Email: "a@x.io"}, nil)
	require.NoError(t, err)
	_, err = f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "B", Email: "b@x.io"}, nil)
	require.NoError(t, err)

	_, err = f.tickets.UpdateTicket(ctx, a.ID, TicketPatch{Email: ptr("b@x.io")}, admin)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.tickets.UpdateTicket(ctx, a.ID, TicketPatch{Email: ptr("")}, admin)
	assert.ErrorIs(t, err, ErrBadRequest)

	out, err := f.tickets.UpdateTicket(ctx, a.ID, TicketPatch{Email: ptr("a2@x.io")}, admin)
	require.NoError(t, err)
	assert.Equal(t, "a2@x.io", out.Email)
	assert.Equal(t, "A", out.Name)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)
	ctx := context.Background()

	sess, err := f.auth.SignUp(ctx, SignUpInput{Name: "L", Email: "l@x.io", Password: "pw"})
	require.NoError(t, err)
	p, err := f.auth.Authenticate(sess.Token.Value)
	require.NoError(t, err)
	_, err = f.tickets.Register(ctx, ev.ID, RegisterInput{}, &p)
	require.NoError(t, err)
	_, err = f.tickets.Register(ctx, ev.ID, RegisterInput{Name: "O", Email: organizer.Email}, nil)
	require.NoError(t, err)

	all, err := f.tickets.ListForEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.tickets.ListForEvent(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := f.tickets.ListMine(ctx, p)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "l@x.io", mine[0].Email)

	staffMine, err := f.tickets.ListMine(ctx, organizer)
	require.NoError(t, err)
	require.Len(t, staffMine, 1)
	assert.Equal(t, organizer.Email, staffMine[0].Email)

	none, err := f.tickets.ListMine(ctx, auth.Principal{Subject: "x", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, none)

	found, err := f.tickets.FindByEventAndEmail(ctx, ev.ID, "l@x.io")
	require.NoError(t, err)
	assert.Equal(t, p.Subject, found.AttendeeID)
	_, err = f.tickets.FindByEventAndEmail(ctx, ev.ID, "L@X.IO")
	assert.ErrorIs(t, err, ErrNotFound)
}
