package appointments

import (
	"context"
	"time"
)

// ConflictDetector answers whether a candidate interval collides with an
// existing non-cancelled appointment for a staff member.
type ConflictDetector struct {
	store Store
}

// NewConflictDetector creates a detector over the given store.
func NewConflictDetector(store Store) *ConflictDetector {
	if store == nil {
		panic("appointments: store required")
	}
	return &ConflictDetector{store: store}
}

// HasOverlap reports a half-open interval collision for the staff member.
// Unassigned bookings (nil staffID) never conflict with anything.
func (d *ConflictDetector) HasOverlap(ctx context.Context, orgID string, staffID *string, excludeID string, start, end time.Time) (bool, error) {
	if staffID == nil || *staffID == "" {
		return false, nil
	}
	return d.store.HasOverlap(ctx, orgID, *staffID, excludeID, start, end)
}
