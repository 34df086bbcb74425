package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bookline/bookline/internal/appointments"
	"github.com/bookline/bookline/internal/grid"
	"github.com/bookline/bookline/internal/hours"
	"github.com/bookline/bookline/internal/orgs"
	"github.com/bookline/bookline/internal/timeutil"
	"github.com/bookline/bookline/pkg/logging"
)

type calendarOrgSource interface {
	Get(ctx context.Context, orgID string) (*orgs.Organization, error)
}

type calendarHoursSource interface {
	ListForOrg(ctx context.Context, orgID string) ([]hours.Row, error)
}

type CalendarHandlerConfig struct {
	Service *appointments.Service
	Orgs    calendarOrgSource
	Hours   calendarHoursSource
	Logger  *logging.Logger
	Now     func() time.Time // tests only
}

// CalendarHandler renders the day/week calendar view model: positioned
// blocks, off-hours overlays and the current-time marker.
type CalendarHandler struct {
	svc    *appointments.Service
	orgs   calendarOrgSource
	hours  calendarHoursSource
	logger *logging.Logger
	now    func() time.Time
}

func NewCalendarHandler(cfg CalendarHandlerConfig) *CalendarHandler {
	if cfg.Service == nil || cfg.Orgs == nil || cfg.Hours == nil {
		panic("handlers: calendar collaborators required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CalendarHandler{svc: cfg.Service, orgs: cfg.Orgs, hours: cfg.Hours, logger: cfg.Logger, now: cfg.Now}
}

// Layout computes the calendar layout for the anchored day or week.
// Route: GET /calendar?mode=day|week&anchor=
func (h *CalendarHandler) Layout(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	org, err := h.orgs.Get(ctx, id.OrgID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "organization not found"})
			return
		}
		h.logger.Error("org lookup failed", "error", err, "org_id", id.OrgID)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "the booking store is temporarily unavailable"})
		return
	}

	mode := grid.ModeDay
	if r.URL.Query().Get("mode") == string(grid.ModeWeek) {
		mode = grid.ModeWeek
	}
	anchor := h.now().UTC()
	if raw := r.URL.Query().Get("anchor"); raw != "" {
		parsed, okAnchor := parseTimeParam(raw)
		if !okAnchor {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "anchor must be RFC3339"})
			return
		}
		anchor = parsed
	}

	from, to := timeutil.DayBoundsUTC(anchor, org.Timezone)
	if mode == grid.ModeWeek {
		_, to = timeutil.DayBoundsUTC(anchor.Add(6*24*time.Hour), org.Timezone)
	}

	appts, err := h.svc.ListEvents(ctx, id.OrgID, from, to)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	rows, err := h.hours.ListForOrg(ctx, id.OrgID)
	if err != nil {
		h.logger.Error("opening hours lookup failed", "error", err, "org_id", id.OrgID)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "the booking store is temporarily unavailable"})
		return
	}

	layout := grid.LayoutBlocks(appts, rows, grid.Config{
		Timezone: org.Timezone,
		Mode:     mode,
		Anchor:   anchor,
	}, h.now().UTC())
	writeJSON(w, http.StatusOK, layout)
}
