package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookline/bookline/internal/appointments"
	"github.com/bookline/bookline/internal/customers"
	"github.com/bookline/bookline/internal/hours"
	"github.com/bookline/bookline/internal/orgs"
	"github.com/bookline/bookline/internal/staff"
	"github.com/bookline/bookline/internal/tenancy"
)

const (
	testOrg   = "org-1"
	testStaff = "staff-1"
	testActor = "reception@harbour.example"
)

type stubOrgs struct {
	orgs  map[string]*orgs.Organization
	saved []orgs.Settings
}

func (f *stubOrgs) Get(_ context.Context, orgID string) (*orgs.Organization, error) {
	org, ok := f.orgs[orgID]
	if !ok {
		return nil, orgs.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (f *stubOrgs) SaveSettings(_ context.Context, orgID, timezone string, settings orgs.Settings) error {
	org, ok := f.orgs[orgID]
	if !ok {
		return orgs.ErrNotFound
	}
	if err := orgs.ValidateTimezone(timezone); err != nil {
		return err
	}
	org.Timezone = timezone
	org.Settings = settings
	f.saved = append(f.saved, settings)
	return nil
}

type stubStaff struct{}

func (stubStaff) GetMember(_ context.Context, orgID, staffID string) (*staff.Member, error) {
	if staffID == testStaff || staffID == "staff-2" {
		return &staff.Member{ID: staffID, OrgID: orgID, Name: "Mere", Active: true}, nil
	}
	return nil, staff.ErrMemberNotFound
}

func (stubStaff) GetService(_ context.Context, orgID, serviceID string) (*staff.Service, error) {
	if serviceID == "svc-45" {
		return &staff.Service{ID: serviceID, OrgID: orgID, Name: "Consult", DurationMin: 45}, nil
	}
	return nil, staff.ErrServiceNotFound
}

type stubCustomers struct{}

func (stubCustomers) GetOrCreateByPhone(_ context.Context, orgID, name, phone string) (*customers.Customer, error) {
	return &customers.Customer{ID: "cust-" + phone, OrgID: orgID, Name: name, Phone: phone}, nil
}

type stubHours struct {
	rows []hours.Row
}

func (f *stubHours) ListForOrg(_ context.Context, _ string) ([]hours.Row, error) {
	return f.rows, nil
}

func (f *stubHours) Upsert(_ context.Context, row hours.Row) error {
	for i, existing := range f.rows {
		if existing.Weekday == row.Weekday {
			f.rows[i] = row
			return nil
		}
	}
	f.rows = append(f.rows, row)
	return nil
}

// withTestIdentity injects the session identity the way the auth middleware
// would.
func withTestIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tenancy.WithIdentity(r.Context(), tenancy.Identity{
			OrgID:      testOrg,
			Timezone:   "Pacific/Auckland",
			ActorEmail: testActor,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type handlerEnv struct {
	svc    *appointments.Service
	store  *appointments.MemoryStore
	orgs   *stubOrgs
	hours  *stubHours
	router chi.Router
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	store := appointments.NewMemoryStore()
	orgDir := &stubOrgs{orgs: map[string]*orgs.Organization{
		testOrg: {ID: testOrg, Name: "Harbour Clinic", Timezone: "Pacific/Auckland"},
	}}
	hrs := &stubHours{}
	svc := appointments.NewService(appointments.ServiceConfig{
		Store:     store,
		Orgs:      orgDir,
		Staff:     stubStaff{},
		Customers: stubCustomers{},
		Hours:     hrs,
	})

	bookingHandler := NewBookingHandler(BookingHandlerConfig{Service: svc})
	calendarHandler := NewCalendarHandler(CalendarHandlerConfig{
		Service: svc,
		Orgs:    orgDir,
		Hours:   hrs,
		Now:     func() time.Time { return time.Date(2026, 3, 3, 21, 0, 0, 0, time.UTC) },
	})
	orgHandler := NewOrgHandler(OrgHandlerConfig{Orgs: orgDir, Hours: hrs})

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(withTestIdentity)
		bookingHandler.Routes(r)
		r.Get("/calendar", calendarHandler.Layout)
		r.Get("/org", orgHandler.Get)
		r.Put("/org/settings", orgHandler.SaveSettings)
		r.Get("/org/hours", orgHandler.ListHours)
		r.Put("/org/hours", orgHandler.SaveHours)
	})

	return &handlerEnv{svc: svc, store: store, orgs: orgDir, hours: hrs, router: r}
}
