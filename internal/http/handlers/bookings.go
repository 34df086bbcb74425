package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookline/bookline/internal/appointments"
	"github.com/bookline/bookline/internal/tenancy"
	"github.com/bookline/bookline/pkg/logging"
)

// DefaultUndoWindowSeconds bounds the cancel-undo grace period when the
// client doesn't specify one.
const DefaultUndoWindowSeconds = 10

type BookingHandlerConfig struct {
	Service *appointments.Service
	Logger  *logging.Logger
}

// BookingHandler exposes the booking commands over HTTP. All routes assume
// the session middleware has already resolved the caller's org.
type BookingHandler struct {
	svc    *appointments.Service
	logger *logging.Logger
}

func NewBookingHandler(cfg BookingHandlerConfig) *BookingHandler {
	if cfg.Service == nil {
		panic("handlers: booking service required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &BookingHandler{svc: cfg.Service, logger: cfg.Logger}
}

// Routes mounts the booking endpoints.
func (h *BookingHandler) Routes(r chi.Router) {
	r.Post("/appointments", h.Create)
	r.Get("/appointments", h.List)
	r.Post("/appointments/bulk/move", h.BulkMove)
	r.Post("/appointments/bulk/cancel", h.BulkCancel)
	r.Get("/appointments/{id}", h.Get)
	r.Patch("/appointments/{id}", h.Update)
	r.Delete("/appointments/{id}", h.Delete)
	r.Post("/appointments/{id}/reschedule", h.Reschedule)
	r.Post("/appointments/{id}/cancel", h.Cancel)
	r.Post("/appointments/{id}/undo-cancel", h.UndoCancel)
	r.Post("/appointments/{id}/duplicate", h.Duplicate)
	r.Post("/appointments/{id}/status", h.UpdateStatus)
	r.Get("/staff/{staffID}/agenda", h.StaffAgenda)
}

func identityOr401(w http.ResponseWriter, r *http.Request) (tenancy.Identity, bool) {
	id, ok := tenancy.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
	}
	return id, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// Create books an appointment.
// Route: POST /appointments
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var input appointments.CreateInput
	if !decodeBody(w, r, &input) {
		return
	}
	appt, err := h.svc.Create(r.Context(), id.OrgID, input)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// List returns appointments intersecting [from, to).
// Route: GET /appointments?from=&to=
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	from, okFrom := parseTimeParam(r.URL.Query().Get("from"))
	to, okTo := parseTimeParam(r.URL.Query().Get("to"))
	if !okFrom || !okTo || !to.After(from) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from and to must be RFC3339 with from < to"})
		return
	}
	appts, err := h.svc.ListEvents(r.Context(), id.OrgID, from, to)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// Get returns one appointment.
// Route: GET /appointments/{id}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Get(r.Context(), id.OrgID, chi.URLParam(r, "id"))
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Update applies a partial edit.
// Route: PATCH /appointments/{id}
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var patch appointments.UpdateInput
	if !decodeBody(w, r, &patch) {
		return
	}
	appt, err := h.svc.Update(r.Context(), id.OrgID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Reschedule moves an appointment to a new time.
// Route: POST /appointments/{id}/reschedule
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var patch appointments.ReschedulePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	appt, err := h.svc.Reschedule(r.Context(), id.OrgID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Cancel soft-cancels an appointment; the undo window is returned so the UI
// can show a countdown.
// Route: POST /appointments/{id}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), id.OrgID, chi.URLParam(r, "id"), id.ActorEmail); err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              appointments.StatusCancelled,
		"undo_window_seconds": DefaultUndoWindowSeconds,
	})
}

type undoCancelRequest struct {
	WindowSeconds int `json:"window_seconds,omitempty"`
}

// UndoCancel restores a cancellation within the grace window.
// Route: POST /appointments/{id}/undo-cancel
func (h *BookingHandler) UndoCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	req := undoCancelRequest{WindowSeconds: DefaultUndoWindowSeconds}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.WindowSeconds <= 0 {
		req.WindowSeconds = DefaultUndoWindowSeconds
	}
	if err := h.svc.UndoCancel(r.Context(), id.OrgID, chi.URLParam(r, "id"), req.WindowSeconds); err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": appointments.StatusScheduled})
}

type duplicateRequest struct {
	DaysOffset int `json:"days_offset,omitempty"`
}

// Duplicate copies an appointment forward.
// Route: POST /appointments/{id}/duplicate
func (h *BookingHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var req duplicateRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	appt, err := h.svc.Duplicate(r.Context(), id.OrgID, chi.URLParam(r, "id"), req.DaysOffset)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// Delete hard-deletes an appointment.
// Route: DELETE /appointments/{id}
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id.OrgID, chi.URLParam(r, "id")); err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus marks an appointment completed / no-show / cancelled.
// Route: POST /appointments/{id}/status
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status := appointments.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := h.svc.UpdateStatus(r.Context(), id.OrgID, chi.URLParam(r, "id"), status, id.ActorEmail); err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

type bulkMoveRequest struct {
	StaffID *string `json:"staff_id,omitempty"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Minutes int     `json:"minutes"`
}

// BulkMove shifts a range of appointments, skipping rows that would conflict.
// Route: POST /appointments/bulk/move
func (h *BookingHandler) BulkMove(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var req bulkMoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	from, okFrom := parseTimeParam(req.From)
	to, okTo := parseTimeParam(req.To)
	if !okFrom || !okTo || !to.After(from) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from and to must be RFC3339 with from < to"})
		return
	}
	result, err := h.svc.BulkMove(r.Context(), id.OrgID, req.StaffID, from, to, req.Minutes)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type bulkCancelRequest struct {
	StaffID string `json:"staff_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// BulkCancel cancels a staff member's appointments in a range.
// Route: POST /appointments/bulk/cancel
func (h *BookingHandler) BulkCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var req bulkCancelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	from, okFrom := parseTimeParam(req.From)
	to, okTo := parseTimeParam(req.To)
	if !okFrom || !okTo || !to.After(from) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from and to must be RFC3339 with from < to"})
		return
	}
	count, err := h.svc.BulkCancel(r.Context(), id.OrgID, req.StaffID, from, to, id.ActorEmail)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": count})
}

// StaffAgenda returns a staff member's bookings for one local day.
// Route: GET /staff/{staffID}/agenda?day=
func (h *BookingHandler) StaffAgenda(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOr401(w, r)
	if !ok {
		return
	}
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, okDay := parseTimeParam(raw)
		if !okDay {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "day must be RFC3339"})
			return
		}
		day = parsed
	}
	appts, err := h.svc.ListStaffAgenda(r.Context(), id.OrgID, chi.URLParam(r, "staffID"), day)
	if err != nil {
		writeBookingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}
