// Package appointments implements the booking command handler: the
// transactional operations that turn a raw time request into a validated,
// conflict-free appointment.
package appointments

import (
	"strings"
	"time"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

const (
	// MinDurationMin is the shortest bookable appointment.
	MinDurationMin = 10
	// DefaultDurationMin applies when neither the request nor the service
	// supplies a duration.
	DefaultDurationMin = 30
	// DefaultDuplicateOffsetDays shifts a duplicated appointment one week out.
	DefaultDuplicateOffsetDays = 7
)

// SourceDuplicate tags rows created by the duplicate command.
const SourceDuplicate = "duplicate"

// TokenSourcePrefix encodes a client idempotency token into the source tag.
const TokenSourcePrefix = "manual:token:"

// Appointment is a booked time span for an org, optionally assigned to a
// staff member. StartsAt and EndsAt are UTC instants snapped to the 5-minute
// grid; both always fall on the same org-local calendar day.
type Appointment struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"org_id"`
	StaffID       *string    `json:"staff_id,omitempty"`
	ServiceID     *string    `json:"service_id,omitempty"`
	CustomerID    *string    `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Status        Status     `json:"status"`
	Source        string     `json:"source"`
	Notes         string     `json:"notes,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy   string     `json:"cancelled_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Active reports whether the appointment should count for conflicts.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// CreateInput is the request body for creating a booking.
type CreateInput struct {
	StaffID       *string `json:"staff_id,omitempty"`
	ServiceID     *string `json:"service_id,omitempty"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	StartsAt      string  `json:"starts_at"` // RFC3339 or naive org-local "2006-01-02T15:04"
	DurationMin   int     `json:"duration_min,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	ClientToken   string  `json:"client_token,omitempty"`
	Source        string  `json:"source,omitempty"`
}

// Validate checks required fields.
func (in *CreateInput) Validate() error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return errMissingField("customer_name")
	}
	if strings.TrimSpace(in.CustomerPhone) == "" {
		return errMissingField("customer_phone")
	}
	if strings.TrimSpace(in.StartsAt) == "" {
		return errMissingField("starts_at")
	}
	return nil
}

// UpdateInput is the request body for updating a booking. Zero-valued
// fields keep the existing row's values.
type UpdateInput struct {
	StaffID       *string `json:"staff_id,omitempty"`
	ServiceID     *string `json:"service_id,omitempty"`
	CustomerName  string  `json:"customer_name,omitempty"`
	CustomerPhone string  `json:"customer_phone,omitempty"`
	StartsAt      string  `json:"starts_at,omitempty"`
	DurationMin   int     `json:"duration_min,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// ReschedulePatch moves a booking to a new time, optionally changing staff,
// service or duration. Omitted fields default to the existing row.
type ReschedulePatch struct {
	StartsAt    string  `json:"starts_at"`
	DurationMin int     `json:"duration_min,omitempty"`
	StaffID     *string `json:"staff_id,omitempty"`
	ServiceID   *string `json:"service_id,omitempty"`
}

// Validate checks required fields.
func (p *ReschedulePatch) Validate() error {
	if strings.TrimSpace(p.StartsAt) == "" {
		return errMissingField("starts_at")
	}
	return nil
}

// BulkMoveResult reports a best-effort batch move.
type BulkMoveResult struct {
	Moved   int      `json:"moved"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
