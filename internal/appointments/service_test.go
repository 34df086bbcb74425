package appointments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline/internal/customers"
	"github.com/bookline/bookline/internal/hours"
	"github.com/bookline/bookline/internal/orgs"
	"github.com/bookline/bookline/internal/staff"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeOrgDir struct {
	orgs map[string]*orgs.Organization
}

func (f *fakeOrgDir) Get(_ context.Context, orgID string) (*orgs.Organization, error) {
	org, ok := f.orgs[orgID]
	if !ok {
		return nil, orgs.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

type fakeStaffDir struct {
	members  map[string]*staff.Member
	services map[string]*staff.Service
}

func (f *fakeStaffDir) GetMember(_ context.Context, orgID, staffID string) (*staff.Member, error) {
	m, ok := f.members[orgID+"/"+staffID]
	if !ok {
		return nil, staff.ErrMemberNotFound
	}
	return m, nil
}

func (f *fakeStaffDir) GetService(_ context.Context, orgID, serviceID string) (*staff.Service, error) {
	s, ok := f.services[orgID+"/"+serviceID]
	if !ok {
		return nil, staff.ErrServiceNotFound
	}
	return s, nil
}

type fakeCustomerDir struct {
	mu sync.Mutex
}

func (f *fakeCustomerDir) GetOrCreateByPhone(_ context.Context, orgID, name, phone string) (*customers.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &customers.Customer{ID: "cust-" + phone, OrgID: orgID, Name: name, Phone: phone}, nil
}

type fakeHoursSource struct {
	rows []hours.Row
}

func (f *fakeHoursSource) ListForOrg(_ context.Context, _ string) ([]hours.Row, error) {
	return f.rows, nil
}

type recordedEvent struct {
	orgID     string
	eventType string
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) Record(_ context.Context, orgID, eventType string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{orgID: orgID, eventType: eventType})
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.eventType)
	}
	return out
}

type testEnv struct {
	svc    *Service
	store  *MemoryStore
	orgDir *fakeOrgDir
	hours  *fakeHoursSource
	clock  *fakeClock
	events *fakeEvents
}

const (
	testOrg   = "org-1"
	testStaff = "staff-1"
)

func strp(s string) *string { return &s }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	orgDir := &fakeOrgDir{orgs: map[string]*orgs.Organization{
		testOrg: {ID: testOrg, Name: "Harbour Clinic", Timezone: "Pacific/Auckland"},
	}}
	staffDir := &fakeStaffDir{
		members: map[string]*staff.Member{
			testOrg + "/" + testStaff: {ID: testStaff, OrgID: testOrg, Name: "Mere", Active: true},
			testOrg + "/staff-2":      {ID: "staff-2", OrgID: testOrg, Name: "Tom", Active: true},
		},
		services: map[string]*staff.Service{
			testOrg + "/svc-45": {ID: "svc-45", OrgID: testOrg, Name: "Consult", DurationMin: 45},
			testOrg + "/svc-5":  {ID: "svc-5", OrgID: testOrg, Name: "Check-in", DurationMin: 5},
		},
	}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	events := &fakeEvents{}
	hrs := &fakeHoursSource{}
	svc := NewService(ServiceConfig{
		Store:     store,
		Orgs:      orgDir,
		Staff:     staffDir,
		Customers: &fakeCustomerDir{},
		Hours:     hrs,
		Events:    events,
	}).WithClock(clock.Now)
	return &testEnv{svc: svc, store: store, orgDir: orgDir, hours: hrs, clock: clock, events: events}
}

func (e *testEnv) mustCreate(t *testing.T, input CreateInput) *Appointment {
	t.Helper()
	appt, err := e.svc.Create(context.Background(), testOrg, input)
	require.NoError(t, err)
	return appt
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsKind(err, kind), "want kind %s, got %v", kind, err)
}

func TestCreateSnapsNaiveLocalTimeToGrid(t *testing.T) {
	env := newTestEnv(t)

	// 09:07 NZDT with a 27-minute duration lands on 09:05-09:35 local.
	appt := env.mustCreate(t, CreateInput{
		StaffID:       strp(testStaff),
		CustomerName:  "Ana",
		CustomerPhone: "+6421000001",
		StartsAt:      "2026-03-04T09:07",
		DurationMin:   27,
	})

	require.Equal(t, time.Date(2026, 3, 3, 20, 5, 0, 0, time.UTC), appt.StartsAt)
	require.Equal(t, time.Date(2026, 3, 3, 20, 35, 0, 0, time.UTC), appt.EndsAt)
	require.Equal(t, StatusScheduled, appt.Status)
	require.Equal(t, "manual", appt.Source)
	require.Equal(t, []string{"appointment.created"}, env.events.types())
}

func TestCreateAcceptsRFC3339(t *testing.T) {
	env := newTestEnv(t)

	appt := env.mustCreate(t, CreateInput{
		CustomerName:  "Ana",
		CustomerPhone: "+6421000001",
		StartsAt:      "2026-03-03T20:00:00Z",
	})

	require.Equal(t, time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC), appt.StartsAt)
	// No explicit or service duration: the 30-minute default applies.
	require.Equal(t, 30*time.Minute, appt.EndsAt.Sub(appt.StartsAt))
}

func TestCreateUsesServiceDuration(t *testing.T) {
	env := newTestEnv(t)

	appt := env.mustCreate(t, CreateInput{
		ServiceID:     strp("svc-45"),
		CustomerName:  "Ana",
		CustomerPhone: "+6421000001",
		StartsAt:      "2026-03-04T10:00",
	})
	require.Equal(t, 45*time.Minute, appt.EndsAt.Sub(appt.StartsAt))
}

func TestCreateShortDurationFallsThrough(t *testing.T) {
	env := newTestEnv(t)

	// Below the minimum with no service: the 30-minute default applies.
	appt := env.mustCreate(t, CreateInput{
		CustomerName:  "Ana",
		CustomerPhone: "+6421000001",
		StartsAt:      "2026-03-04T10:00",
		DurationMin:   7,
	})
	require.Equal(t, 30*time.Minute, appt.EndsAt.Sub(appt.StartsAt))

	// Below the minimum with a service: the service duration wins.
	appt = env.mustCreate(t, CreateInput{
		ServiceID:     strp("svc-45"),
		CustomerName:  "Ana",
		CustomerPhone: "+6421000001",
		StartsAt:      "2026-03-04T12:00",
		DurationMin:   7,
	})
	require.Equal(t, 45*time.Minute, appt.EndsAt.Sub(appt.StartsAt))

	// A service shorter than the minimum is clamped up to it.
	appt = env.mustCreate(t, CreateInput{
		ServiceID:     strp("svc-5"),
		CustomerName:  "Ana",
		CustomerPhone: "+6421000001",
		StartsAt:      "2026-03-04T14:00",
	})
	require.Equal(t, 10*time.Minute, appt.EndsAt.Sub(appt.StartsAt))

	_, err := env.svc.Create(context.Background(), testOrg, CreateInput{
		CustomerName:  "Ana",
		CustomerPhone: "+6421000001",
		StartsAt:      "2026-03-04T11:00",
		DurationMin:   -5,
	})
	requireKind(t, err, KindDurationTooShort)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, testOrg, CreateInput{CustomerPhone: "021", StartsAt: "2026-03-04T10:00"})
	requireKind(t, err, KindMissingField)

	_, err = env.svc.Create(ctx, testOrg, CreateInput{CustomerName: "Ana", CustomerPhone: "021", StartsAt: "not-a-time"})
	requireKind(t, err, KindInvalidTime)

	_, err = env.svc.Create(ctx, testOrg, CreateInput{
		StaffID: strp("ghost"), CustomerName: "Ana", CustomerPhone: "021", StartsAt: "2026-03-04T10:00",
	})
	requireKind(t, err, KindOwnershipViolation)

	_, err = env.svc.Create(ctx, "no-such-org", CreateInput{CustomerName: "Ana", CustomerPhone: "021", StartsAt: "2026-03-04T10:00"})
	requireKind(t, err, KindNotFound)
}

func TestCreateRejectsDayBoundaryCrossing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), testOrg, CreateInput{
		CustomerName:  "Ana",
		CustomerPhone: "021",
		StartsAt:      "2026-03-04T23:50",
		DurationMin:   30,
	})
	requireKind(t, err, KindCrossesDayBoundary)

	// Ending exactly at local midnight stays within the day.
	appt := env.mustCreate(t, CreateInput{
		CustomerName:  "Ana",
		CustomerPhone: "021",
		StartsAt:      "2026-03-04T23:30",
		DurationMin:   30,
	})
	require.Equal(t, time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC), appt.EndsAt)
}

func TestCreateConflictSameStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, CreateInput{
		StaffID:       strp(testStaff),
		CustomerName:  "Ana",
		CustomerPhone: "021",
		StartsAt:      "2026-03-04T09:00",
		DurationMin:   30,
	})

	_, err := env.svc.Create(ctx, testOrg, CreateInput{
		StaffID:       strp(testStaff),
		CustomerName:  "Ben",
		CustomerPhone: "022",
		StartsAt:      "2026-03-04T09:15",
		DurationMin:   30,
	})
	requireKind(t, err, KindConflict)

	// Different staff, unassigned, and back-to-back bookings all pass.
	env.mustCreate(t, CreateInput{
		StaffID: strp("staff-2"), CustomerName: "Ben", CustomerPhone: "022",
		StartsAt: "2026-03-04T09:15", DurationMin: 30,
	})
	env.mustCreate(t, CreateInput{
		CustomerName: "Cal", CustomerPhone: "023",
		StartsAt: "2026-03-04T09:15", DurationMin: 30,
	})
	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Dee", CustomerPhone: "024",
		StartsAt: "2026-03-04T09:30", DurationMin: 30,
	})
}

func TestCreateEnforcesOpeningHours(t *testing.T) {
	env := newTestEnv(t)
	env.orgDir.orgs[testOrg].Settings.EnforceOpeningHours = true
	env.hours.rows = []hours.Row{
		{OrgID: testOrg, Weekday: 3, OpenMin: 540, CloseMin: 1080}, // Wednesday 09:00-18:00
	}
	ctx := context.Background()

	// 2026-03-04 is a Wednesday in Auckland.
	_, err := env.svc.Create(ctx, testOrg, CreateInput{
		CustomerName: "Ana", CustomerPhone: "021", StartsAt: "2026-03-04T08:00",
	})
	requireKind(t, err, KindOutsideOpeningHours)

	env.mustCreate(t, CreateInput{
		CustomerName: "Ana", CustomerPhone: "021", StartsAt: "2026-03-04T10:00",
	})

	// Thursday falls back to the 09:00-18:00 default, so 10:00 still works.
	env.mustCreate(t, CreateInput{
		CustomerName: "Ana", CustomerPhone: "021", StartsAt: "2026-03-05T10:00",
	})
}

func TestCreateIdempotentWithClientToken(t *testing.T) {
	env := newTestEnv(t)
	input := CreateInput{
		StaffID:       strp(testStaff),
		CustomerName:  "Ana",
		CustomerPhone: "021",
		StartsAt:      "2026-03-04T09:00",
		ClientToken:   "tok-1",
	}

	first := env.mustCreate(t, input)
	second := env.mustCreate(t, input)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, TokenSourcePrefix+"tok-1", first.Source)
	require.Equal(t, []string{"appointment.created"}, env.events.types())
}

func TestConcurrentCreatesOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Create(ctx, testOrg, CreateInput{
				StaffID:       strp(testStaff),
				CustomerName:  "Ana",
				CustomerPhone: "021",
				StartsAt:      "2026-03-04T09:00",
				DurationMin:   30,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case IsKind(err, KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, racers-1, conflicts)
}

func TestUpdateMergesPatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.mustCreate(t, CreateInput{
		StaffID:       strp(testStaff),
		CustomerName:  "Ana",
		CustomerPhone: "021",
		StartsAt:      "2026-03-04T09:00",
		DurationMin:   30,
	})

	updated, err := env.svc.Update(ctx, testOrg, appt.ID, UpdateInput{
		StartsAt: "2026-03-04T14:00",
		Notes:    strp("bring x-rays"),
	})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC), updated.StartsAt)
	require.Equal(t, 30*time.Minute, updated.EndsAt.Sub(updated.StartsAt))
	require.Equal(t, "bring x-rays", updated.Notes)
	require.Equal(t, testStaff, *updated.StaffID)

	_, err = env.svc.Update(ctx, testOrg, "missing", UpdateInput{StartsAt: "2026-03-04T15:00"})
	requireKind(t, err, KindNotFound)
}

func TestUpdateCannotCreateConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})
	second := env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ben", CustomerPhone: "022",
		StartsAt: "2026-03-04T10:00", DurationMin: 30,
	})

	_, err := env.svc.Update(ctx, testOrg, second.ID, UpdateInput{StartsAt: "2026-03-04T09:10"})
	requireKind(t, err, KindConflict)

	// Rescheduling over its own slot is fine: a row never conflicts with itself.
	moved, err := env.svc.Reschedule(ctx, testOrg, second.ID, ReschedulePatch{StartsAt: "2026-03-04T10:05"})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 3, 21, 5, 0, 0, time.UTC), moved.StartsAt)
}

func TestCancelAndUndoWithinWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})

	require.NoError(t, env.svc.Cancel(ctx, testOrg, appt.ID, "reception@harbour.example"))
	got, err := env.store.GetByID(ctx, testOrg, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	require.Equal(t, "reception@harbour.example", got.CancelledBy)

	// Cancelling twice is a no-op.
	require.NoError(t, env.svc.Cancel(ctx, testOrg, appt.ID, "reception@harbour.example"))

	env.clock.Advance(3 * time.Second)
	require.NoError(t, env.svc.UndoCancel(ctx, testOrg, appt.ID, 10))

	got, err = env.store.GetByID(ctx, testOrg, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, got.Status)
	require.Nil(t, got.CancelledAt)
	require.Empty(t, got.CancelledBy)
}

func TestUndoCancelExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.mustCreate(t, CreateInput{
		CustomerName: "Ana", CustomerPhone: "021", StartsAt: "2026-03-04T09:00",
	})
	require.NoError(t, env.svc.Cancel(ctx, testOrg, appt.ID, "reception"))

	env.clock.Advance(15 * time.Second)
	err := env.svc.UndoCancel(ctx, testOrg, appt.ID, 10)
	requireKind(t, err, KindNotFound)

	got, err := env.store.GetByID(ctx, testOrg, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestUndoCancelRefusesRebookedSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})
	require.NoError(t, env.svc.Cancel(ctx, testOrg, appt.ID, "reception"))

	// The freed slot gets rebooked before the undo arrives.
	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ben", CustomerPhone: "022",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})

	err := env.svc.UndoCancel(ctx, testOrg, appt.ID, 60)
	requireKind(t, err, KindConflict)
}

func TestDuplicateShiftsOneWeek(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	src := env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T10:00", DurationMin: 45, Notes: "follow-up",
	})

	dup, err := env.svc.Duplicate(ctx, testOrg, src.ID, 0)
	require.NoError(t, err)
	require.NotEqual(t, src.ID, dup.ID)
	require.Equal(t, src.StartsAt.Add(7*24*time.Hour), dup.StartsAt)
	require.Equal(t, src.EndsAt.Add(7*24*time.Hour), dup.EndsAt)
	require.Equal(t, SourceDuplicate, dup.Source)
	require.Equal(t, StatusScheduled, dup.Status)
	require.Equal(t, "follow-up", dup.Notes)
	require.Equal(t, src.CustomerPhone, dup.CustomerPhone)

	// The duplicated slot is now occupied, so duplicating again collides.
	_, err = env.svc.Duplicate(ctx, testOrg, src.ID, 7)
	requireKind(t, err, KindConflict)

	_, err = env.svc.Duplicate(ctx, testOrg, "missing", 0)
	requireKind(t, err, KindNotFound)
}

func TestDeleteRemovesRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.mustCreate(t, CreateInput{
		CustomerName: "Ana", CustomerPhone: "021", StartsAt: "2026-03-04T09:00",
	})
	require.NoError(t, env.svc.Delete(ctx, testOrg, appt.ID))

	_, err := env.store.GetByID(ctx, testOrg, appt.ID)
	require.ErrorIs(t, err, ErrNotFound)

	requireKind(t, env.svc.Delete(ctx, testOrg, appt.ID), KindNotFound)
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.mustCreate(t, CreateInput{
		CustomerName: "Ana", CustomerPhone: "021", StartsAt: "2026-03-04T09:00",
	})

	require.NoError(t, env.svc.UpdateStatus(ctx, testOrg, appt.ID, StatusCompleted, "reception"))
	got, err := env.store.GetByID(ctx, testOrg, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)

	// Terminal states don't hop sideways.
	err = env.svc.UpdateStatus(ctx, testOrg, appt.ID, StatusNoShow, "reception")
	requireKind(t, err, KindConflict)

	err = env.svc.UpdateStatus(ctx, testOrg, appt.ID, Status("BOGUS"), "reception")
	requireKind(t, err, KindMissingField)
}

func TestBulkMoveSkipsConflictsAndMidnight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})
	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ben", CustomerPhone: "022",
		StartsAt: "2026-03-04T09:30", DurationMin: 30,
	})
	// Blocker just past the shifted window.
	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Cal", CustomerPhone: "023",
		StartsAt: "2026-03-04T11:00", DurationMin: 30,
	})

	// 2026-03-04 00:00 NZDT == 2026-03-03 11:00 UTC.
	from := time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 3, 22, 0, 0, 0, time.UTC) // covers 09:00-10:00 local only

	result, err := env.svc.BulkMove(ctx, testOrg, strp(testStaff), from, to, 60)
	require.NoError(t, err)
	require.Equal(t, 2, result.Moved)
	require.Equal(t, 0, result.Skipped)
	require.Empty(t, result.Errors)

	moved, err := env.store.GetByID(ctx, testOrg, first.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 3, 21, 0, 0, 0, time.UTC), moved.StartsAt)
}

func TestBulkMoveSkipsRowThatWouldConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	target := env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T09:30", DurationMin: 30,
	})
	// Blocker occupying the shifted slot, outside the move range.
	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ben", CustomerPhone: "022",
		StartsAt: "2026-03-04T10:30", DurationMin: 30,
	})

	from := time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC)  // 09:00 local
	to := time.Date(2026, 3, 3, 21, 15, 0, 0, time.UTC)   // 10:15 local

	result, err := env.svc.BulkMove(ctx, testOrg, strp(testStaff), from, to, 60)
	require.NoError(t, err)
	require.Equal(t, 0, result.Moved)
	require.Equal(t, 1, result.Skipped)

	unchanged, err := env.store.GetByID(ctx, testOrg, target.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 3, 20, 30, 0, 0, time.UTC), unchanged.StartsAt)
}

func TestBulkMoveSkipsMidnightCrossing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T23:00", DurationMin: 30,
	})

	from := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)

	result, err := env.svc.BulkMove(ctx, testOrg, nil, from, to, 90)
	require.NoError(t, err)
	require.Equal(t, 0, result.Moved)
	require.Equal(t, 1, result.Skipped)
}

func TestBulkCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})
	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ben", CustomerPhone: "022",
		StartsAt: "2026-03-04T10:00", DurationMin: 30,
	})
	other := env.mustCreate(t, CreateInput{
		StaffID: strp("staff-2"), CustomerName: "Cal", CustomerPhone: "023",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})

	from := time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)

	count, err := env.svc.BulkCancel(ctx, testOrg, testStaff, from, to, "manager")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	kept, err := env.store.GetByID(ctx, testOrg, other.ID)
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, kept.Status)

	_, err = env.svc.BulkCancel(ctx, testOrg, "", from, to, "manager")
	requireKind(t, err, KindMissingField)
}

func TestListStaffAgenda(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ana", CustomerPhone: "021",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})
	cancelled := env.mustCreate(t, CreateInput{
		StaffID: strp(testStaff), CustomerName: "Ben", CustomerPhone: "022",
		StartsAt: "2026-03-04T10:00", DurationMin: 30,
	})
	require.NoError(t, env.svc.Cancel(ctx, testOrg, cancelled.ID, "reception"))
	env.mustCreate(t, CreateInput{
		StaffID: strp("staff-2"), CustomerName: "Cal", CustomerPhone: "023",
		StartsAt: "2026-03-04T09:00", DurationMin: 30,
	})

	day := time.Date(2026, 3, 3, 22, 0, 0, 0, time.UTC) // 11:00 local on the 4th
	agenda, err := env.svc.ListStaffAgenda(ctx, testOrg, testStaff, day)
	require.NoError(t, err)
	require.Len(t, agenda, 1)
	require.Equal(t, "Ana", agenda[0].CustomerName)
}
