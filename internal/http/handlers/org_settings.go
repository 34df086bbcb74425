package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/bookline/bookline/internal/hours"
	"github.com/bookline/bookline/internal/orgs"
	"github.com/bookline/bookline/pkg/logging"
)

type orgStore interface {
	Get(ctx context.Context, orgID string) (*orgs.Organization, error)
	SaveSettings(ctx context.Context, orgID, timezone string, settings orgs.Settings) error
}

type hoursStore interface {
	ListForOrg(ctx context.Context, orgID string) ([]hours.Row, error)
	Upsert(ctx context.Context, row hours.Row) error
}

type OrgHandlerConfig struct {
	Orgs   orgStore
	Hours  hoursStore
	Logger *logging.Logger
}

// OrgHandler exposes organization settings and opening hours.
type OrgHandler struct {
	orgs   orgStore
	hours  hoursStore
	logger *logging.Logger
}

func NewOrgHandler(cfg OrgHandlerConfig) *OrgHandler {
	if cfg.Orgs == nil || cfg.Hours == nil {
		panic("handlers: org and hours stores required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &OrgHandler{orgs: cfg.Orgs, hours: cfg.Hours, logger: cfg.Logger}
}

func (h *OrgHandler) writeOrgError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orgs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "organization not found"})
	case errors.Is(err, orgs.ErrInvalidTimezone):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "timezone must be a valid IANA name"})
	default:
		h.logger.Error("org store error", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "the booking store is temporarily unavailable"})
	}
}

// Get returns the caller's organization with its settings.
// Route: GET /org
func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	org, err := h.orgs.Get(r.Context(), id.OrgID)
	if err != nil {
		h.writeOrgError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

type saveSettingsRequest struct {
	Timezone string        `json:"timezone"`
	Settings orgs.Settings `json:"settings"`
}

// SaveSettings updates the org timezone and booking settings.
// Route: PUT /org/settings
func (h *OrgHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var req saveSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.orgs.SaveSettings(r.Context(), id.OrgID, req.Timezone, req.Settings); err != nil {
		h.writeOrgError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ListHours returns the configured weekly schedule.
// Route: GET /org/hours
func (h *OrgHandler) ListHours(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	rows, err := h.hours.ListForOrg(r.Context(), id.OrgID)
	if err != nil {
		h.writeOrgError(w, err)
		return
	}
	if len(rows) == 0 {
		rows = hours.DefaultSchedule()
	}
	writeJSON(w, http.StatusOK, rows)
}

type saveHoursRequest struct {
	Rows []hours.Row `json:"rows"`
}

// SaveHours upserts weekday windows.
// Route: PUT /org/hours
func (h *OrgHandler) SaveHours(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var req saveHoursRequest
	if !decodeBody(w, r, &req) {
		return
	}
	for _, row := range req.Rows {
		if row.Weekday < 0 || row.Weekday > 6 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "weekday must be 0-6"})
			return
		}
		if row.OpenMin < 0 || row.CloseMin > 24*60 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "open/close must be minutes within the day"})
			return
		}
	}
	for _, row := range req.Rows {
		row.OrgID = id.OrgID
		if err := h.hours.Upsert(r.Context(), row); err != nil {
			h.writeOrgError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(req.Rows)})
}
