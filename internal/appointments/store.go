package appointments

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the appointment does not exist in the org.
	ErrNotFound = errors.New("appointment not found")

	// ErrConflict is returned by checked writes when the interval overlaps an
	// existing non-cancelled appointment for the same staff member.
	ErrConflict = errors.New("appointment overlaps an existing booking")
)

// Store is the persistence contract for appointments. The two Checked
// writes are the concurrency-critical operations: the overlap check and the
// write happen atomically with respect to other callers for the same staff
// member, so two racing creates can never both land.
type Store interface {
	GetByID(ctx context.Context, orgID, id string) (*Appointment, error)
	// ListRange returns appointments intersecting [from, to), any status.
	ListRange(ctx context.Context, orgID string, from, to time.Time) ([]*Appointment, error)
	// FindBySource returns the first appointment whose source tag matches
	// exactly; used for idempotency-token replays.
	FindBySource(ctx context.Context, orgID, source string) (*Appointment, error)
	// HasOverlap runs the read-time conflict probe. staffID "" never
	// conflicts; excludeID ignores one appointment id.
	HasOverlap(ctx context.Context, orgID, staffID, excludeID string, start, end time.Time) (bool, error)
	// CreateChecked atomically re-checks overlap and inserts, returning
	// ErrConflict instead of writing on overlap.
	CreateChecked(ctx context.Context, appt *Appointment) error
	// UpdateChecked atomically re-checks overlap (excluding the row itself)
	// and updates all mutable columns.
	UpdateChecked(ctx context.Context, appt *Appointment) error
	// Update writes without an overlap check; for status-only transitions.
	Update(ctx context.Context, appt *Appointment) error
	Delete(ctx context.Context, orgID, id string) error
}

// overlaps is the authoritative half-open interval predicate: a booking
// ending at 10:00 does not conflict with one starting at 10:00.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
