// Package staff holds the per-org staff roster and service catalog that
// appointments reference.
package staff

import (
	"errors"
	"time"
)

// Member is a bookable staff member. An appointment's staff reference must
// belong to the same org as the appointment.
type Member struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Service is a bookable treatment; its duration is only ever used as the
// default appointment length.
type Service struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	DurationMin int    `json:"duration_min"`
}

var (
	// ErrMemberNotFound is returned when the staff member is absent from the org.
	ErrMemberNotFound = errors.New("staff member not found")

	// ErrServiceNotFound is returned when the service is absent from the org.
	ErrServiceNotFound = errors.New("service not found")
)
