// Package handlers exposes the booking platform's HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bookline/bookline/internal/appointments"
	"github.com/bookline/bookline/pkg/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// bookingErrorStatus maps a booking error kind to an HTTP status.
func bookingErrorStatus(kind appointments.Kind) int {
	switch kind {
	case appointments.KindMissingField, appointments.KindInvalidTime:
		return http.StatusBadRequest
	case appointments.KindCrossesDayBoundary, appointments.KindDurationTooShort, appointments.KindOutsideOpeningHours:
		return http.StatusUnprocessableEntity
	case appointments.KindOwnershipViolation:
		return http.StatusForbidden
	case appointments.KindConflict:
		return http.StatusConflict
	case appointments.KindNotFound:
		return http.StatusNotFound
	case appointments.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeBookingError surfaces the error's stable message as-is; only the
// store-unavailable class hides its cause behind a generic message.
func writeBookingError(w http.ResponseWriter, logger *logging.Logger, err error) {
	kind, ok := appointments.KindOf(err)
	if !ok {
		logger.Error("unexpected handler error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	status := bookingErrorStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("booking command failed", "error", err, "kind", kind)
	}
	var e *appointments.Error
	message := err.Error()
	if errors.As(err, &e) {
		message = e.Message
	}
	writeJSON(w, status, errorResponse{Error: message, Kind: string(kind)})
}

// parseTimeParam parses an RFC3339 query parameter.
func parseTimeParam(raw string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
