// Package orgs manages organizations and their typed scheduling settings.
package orgs

import (
	"errors"
	"strings"
	"time"
)

// Settings is the org-level scheduling configuration. It is persisted as a
// single jsonb column but parsed exactly once at the repository boundary;
// commands only ever see this struct.
type Settings struct {
	// EnforceOpeningHours rejects bookings outside the org's opening hours.
	EnforceOpeningHours bool `json:"enforce_opening_hours"`
}

// Organization is a tenant.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"` // IANA name, e.g. "Pacific/Auckland"
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrNotFound is returned when the org does not exist.
	ErrNotFound = errors.New("organization not found")

	// ErrInvalidTimezone is returned when a timezone name fails to resolve.
	ErrInvalidTimezone = errors.New("invalid IANA timezone")
)

// ValidateTimezone checks an IANA timezone name at the settings boundary so
// the scheduling core can trust stored values.
func ValidateTimezone(tz string) error {
	if strings.TrimSpace(tz) == "" {
		return ErrInvalidTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return ErrInvalidTimezone
	}
	return nil
}
