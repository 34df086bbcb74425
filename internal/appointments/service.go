package appointments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline/bookline/internal/customers"
	"github.com/bookline/bookline/internal/events"
	"github.com/bookline/bookline/internal/hours"
	"github.com/bookline/bookline/internal/observability/metrics"
	"github.com/bookline/bookline/internal/orgs"
	"github.com/bookline/bookline/internal/staff"
	"github.com/bookline/bookline/internal/timeutil"
	"github.com/bookline/bookline/pkg/logging"
)

var bookingsTracer = otel.Tracer("bookline.internal.appointments")

// OrgDirectory resolves an org's timezone and settings.
type OrgDirectory interface {
	Get(ctx context.Context, orgID string) (*orgs.Organization, error)
}

// StaffDirectory verifies staff/service ownership and supplies default
// durations.
type StaffDirectory interface {
	GetMember(ctx context.Context, orgID, staffID string) (*staff.Member, error)
	GetService(ctx context.Context, orgID, serviceID string) (*staff.Service, error)
}

// CustomerResolver lazily creates customers by normalized phone.
type CustomerResolver interface {
	GetOrCreateByPhone(ctx context.Context, orgID, name, phone string) (*customers.Customer, error)
}

// HoursSource supplies the org's configured opening-hours rows.
type HoursSource interface {
	ListForOrg(ctx context.Context, orgID string) ([]hours.Row, error)
}

// EventRecorder receives appointment change events for downstream
// integrations (calendar sync, webhooks). Recording is best-effort from the
// command's point of view; delivery is the outbox's problem.
type EventRecorder interface {
	Record(ctx context.Context, orgID, eventType string, payload any) error
}

// ServiceConfig wires the command handler's collaborators.
type ServiceConfig struct {
	Store     Store
	Orgs      OrgDirectory
	Staff     StaffDirectory
	Customers CustomerResolver
	Hours     HoursSource
	Events    EventRecorder           // optional
	Metrics   *metrics.BookingMetrics // optional
	Logger    *logging.Logger
}

// Service executes booking commands: each one runs validate → conflict-check
// → write as a single synchronous request.
type Service struct {
	store     Store
	conflicts *ConflictDetector
	orgs      OrgDirectory
	staff     StaffDirectory
	customers CustomerResolver
	hours     HoursSource
	events    EventRecorder
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewService constructs the booking command handler.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Store == nil {
		panic("appointments: store required")
	}
	if cfg.Orgs == nil || cfg.Staff == nil || cfg.Customers == nil || cfg.Hours == nil {
		panic("appointments: org, staff, customer and hours collaborators required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     cfg.Store,
		conflicts: NewConflictDetector(cfg.Store),
		orgs:      cfg.Orgs,
		staff:     cfg.Staff,
		customers: cfg.Customers,
		hours:     cfg.Hours,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the service clock; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// parseStartTime accepts either a full-offset RFC3339 timestamp or a naive
// org-local one.
func parseStartTime(raw, tz string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	loc := timeutil.Location(tz)
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, newError(KindInvalidTime)
}

// resolveDuration picks the effective duration in minutes: the explicit
// request when it meets the minimum, else the service's duration, else 30.
// An explicit value below the minimum is treated as absent rather than
// clamped; the floor applies to whatever the fall-through resolves.
func (s *Service) resolveDuration(ctx context.Context, org *orgs.Organization, serviceID *string, explicit int) (int, error) {
	if explicit < 0 {
		return 0, newError(KindDurationTooShort)
	}
	if explicit >= MinDurationMin {
		return explicit, nil
	}
	resolved := DefaultDurationMin
	if serviceID != nil && *serviceID != "" {
		svc, err := s.staff.GetService(ctx, org.ID, *serviceID)
		if err != nil {
			if errors.Is(err, staff.ErrServiceNotFound) {
				return 0, newError(KindOwnershipViolation)
			}
			return 0, wrapError(KindStoreUnavailable, err)
		}
		if svc.DurationMin > 0 {
			resolved = svc.DurationMin
		}
	}
	if resolved < MinDurationMin {
		resolved = MinDurationMin
	}
	return resolved, nil
}

// prepareInterval runs the shared tail of the validation pipeline: snap to
// the grid, enforce the minimum span, reject day-spanning intervals, verify
// staff/service ownership, and optionally enforce opening hours. It returns
// the final UTC interval.
func (s *Service) prepareInterval(ctx context.Context, org *orgs.Organization, staffID, serviceID *string, start time.Time, durationMin int) (time.Time, time.Time, error) {
	end := start.Add(time.Duration(durationMin) * time.Minute)
	start = timeutil.SnapToGrid(start, timeutil.GridStepMinutes)
	end = timeutil.SnapToGrid(end, timeutil.GridStepMinutes)
	if end.Sub(start) < MinDurationMin*time.Minute {
		end = start.Add(MinDurationMin * time.Minute)
	}

	if !timeutil.SameLocalDay(start, end.Add(-time.Millisecond), org.Timezone) {
		return time.Time{}, time.Time{}, newError(KindCrossesDayBoundary)
	}

	if staffID != nil && *staffID != "" {
		if _, err := s.staff.GetMember(ctx, org.ID, *staffID); err != nil {
			if errors.Is(err, staff.ErrMemberNotFound) {
				return time.Time{}, time.Time{}, newError(KindOwnershipViolation)
			}
			return time.Time{}, time.Time{}, wrapError(KindStoreUnavailable, err)
		}
	}
	if serviceID != nil && *serviceID != "" {
		if _, err := s.staff.GetService(ctx, org.ID, *serviceID); err != nil {
			if errors.Is(err, staff.ErrServiceNotFound) {
				return time.Time{}, time.Time{}, newError(KindOwnershipViolation)
			}
			return time.Time{}, time.Time{}, wrapError(KindStoreUnavailable, err)
		}
	}

	if org.Settings.EnforceOpeningHours {
		rows, err := s.hours.ListForOrg(ctx, org.ID)
		if err != nil {
			return time.Time{}, time.Time{}, wrapError(KindStoreUnavailable, err)
		}
		window := hours.DayWindow(rows, org.Timezone, start)
		startMin := timeutil.MinutesFromMidnight(start, org.Timezone)
		endMin := startMin + timeutil.ElapsedLocalMinutes(start, end, org.Timezone)
		if !window.Contains(startMin, endMin) {
			return time.Time{}, time.Time{}, newError(KindOutsideOpeningHours)
		}
	}

	return start, end, nil
}

// checkConflict probes for a staff double-booking before the write. The
// store's checked write re-runs the probe atomically; this early check just
// fails fast with a clean error on the common path.
func (s *Service) checkConflict(ctx context.Context, orgID string, staffID *string, excludeID string, start, end time.Time) error {
	conflict, err := s.conflicts.HasOverlap(ctx, orgID, staffID, excludeID, start, end)
	if err != nil {
		return wrapError(KindStoreUnavailable, err)
	}
	if conflict {
		return newError(KindConflict)
	}
	return nil
}

func (s *Service) getOrg(ctx context.Context, orgID string) (*orgs.Organization, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			return nil, newError(KindNotFound)
		}
		return nil, wrapError(KindStoreUnavailable, err)
	}
	return org, nil
}

// storeErr maps store sentinels to typed booking errors.
func storeErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return newError(KindNotFound)
	case errors.Is(err, ErrConflict):
		return newError(KindConflict)
	default:
		return wrapError(KindStoreUnavailable, err)
	}
}

func (s *Service) observe(command string, started time.Time, err error) {
	outcome := "ok"
	if kind, isBooking := KindOf(err); isBooking {
		outcome = string(kind)
		if kind == KindConflict {
			s.metrics.ObserveConflict()
		}
	} else if err != nil {
		outcome = "error"
	}
	s.metrics.ObserveCommand(command, outcome, time.Since(started).Seconds())
}

func (s *Service) record(ctx context.Context, orgID, eventType string, appt *Appointment) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, orgID, eventType, appt); err != nil {
		s.logger.Warn("failed to record appointment event",
			"error", err, "org_id", orgID, "event", eventType, "appointment_id", appt.ID)
	}
}

// Create books a new appointment. With a client token, a retried submission
// short-circuits to the already-created row instead of double-booking.
func (s *Service) Create(ctx context.Context, orgID string, input CreateInput) (*Appointment, error) {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(attribute.String("bookline.org_id", orgID))

	appt, err := s.create(ctx, orgID, input)
	if err != nil {
		span.RecordError(err)
	}
	s.observe("create", started, err)
	return appt, err
}

func (s *Service) create(ctx context.Context, orgID string, input CreateInput) (*Appointment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	phone := customers.NormalizePhone(input.CustomerPhone)
	if phone == "" {
		return nil, errMissingField("customer_phone")
	}

	org, err := s.getOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = "manual"
	}
	if token := strings.TrimSpace(input.ClientToken); token != "" {
		source = TokenSourcePrefix + token
		existing, err := s.store.FindBySource(ctx, orgID, source)
		if err == nil {
			s.logger.Info("idempotent create replay", "org_id", orgID, "appointment_id", existing.ID)
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, wrapError(KindStoreUnavailable, err)
		}
	}

	start, err := parseStartTime(input.StartsAt, org.Timezone)
	if err != nil {
		return nil, err
	}
	duration, err := s.resolveDuration(ctx, org, input.ServiceID, input.DurationMin)
	if err != nil {
		return nil, err
	}
	start, end, err := s.prepareInterval(ctx, org, input.StaffID, input.ServiceID, start, duration)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, orgID, input.StaffID, "", start, end); err != nil {
		return nil, err
	}

	customer, err := s.customers.GetOrCreateByPhone(ctx, orgID, input.CustomerName, phone)
	if err != nil {
		return nil, wrapError(KindStoreUnavailable, err)
	}

	now := s.now().UTC()
	appt := &Appointment{
		ID:            uuid.New().String(),
		OrgID:         orgID,
		StaffID:       normalizeRef(input.StaffID),
		ServiceID:     normalizeRef(input.ServiceID),
		CustomerID:    &customer.ID,
		CustomerName:  input.CustomerName,
		CustomerPhone: phone,
		StartsAt:      start,
		EndsAt:        end,
		Status:        StatusScheduled,
		Source:        source,
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateChecked(ctx, appt); err != nil {
		return nil, storeErr(err)
	}

	s.logger.Info("booking created",
		"org_id", orgID, "appointment_id", appt.ID,
		"staff_id", deref(appt.StaffID), "starts_at", appt.StartsAt)
	s.record(ctx, orgID, events.TypeAppointmentCreated, appt)
	return appt, nil
}

// Update edits an existing booking; omitted patch fields keep the current
// values. The full validation pipeline re-runs against the merged result.
func (s *Service) Update(ctx context.Context, orgID, id string, patch UpdateInput) (*Appointment, error) {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.update")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.String("bookline.appointment_id", id),
	)

	appt, err := s.update(ctx, orgID, id, patch)
	if err != nil {
		span.RecordError(err)
	}
	s.observe("update", started, err)
	return appt, err
}

func (s *Service) update(ctx context.Context, orgID, id string, patch UpdateInput) (*Appointment, error) {
	org, err := s.getOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, storeErr(err)
	}

	merged := *existing
	if patch.StaffID != nil {
		merged.StaffID = normalizeRef(patch.StaffID)
	}
	if patch.ServiceID != nil {
		merged.ServiceID = normalizeRef(patch.ServiceID)
	}
	if name := strings.TrimSpace(patch.CustomerName); name != "" {
		merged.CustomerName = name
	}
	if rawPhone := strings.TrimSpace(patch.CustomerPhone); rawPhone != "" {
		phone := customers.NormalizePhone(rawPhone)
		if phone == "" {
			return nil, errMissingField("customer_phone")
		}
		customer, err := s.customers.GetOrCreateByPhone(ctx, orgID, merged.CustomerName, phone)
		if err != nil {
			return nil, wrapError(KindStoreUnavailable, err)
		}
		merged.CustomerPhone = phone
		merged.CustomerID = &customer.ID
	}
	if patch.Notes != nil {
		merged.Notes = *patch.Notes
	}

	start := existing.StartsAt
	if strings.TrimSpace(patch.StartsAt) != "" {
		if start, err = parseStartTime(patch.StartsAt, org.Timezone); err != nil {
			return nil, err
		}
	}
	duration := int(existing.EndsAt.Sub(existing.StartsAt) / time.Minute)
	if patch.DurationMin != 0 {
		if duration, err = s.resolveDuration(ctx, org, merged.ServiceID, patch.DurationMin); err != nil {
			return nil, err
		}
	}

	merged.StartsAt, merged.EndsAt, err = s.prepareInterval(ctx, org, merged.StaffID, merged.ServiceID, start, duration)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, orgID, merged.StaffID, id, merged.StartsAt, merged.EndsAt); err != nil {
		return nil, err
	}

	merged.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateChecked(ctx, &merged); err != nil {
		return nil, storeErr(err)
	}

	s.logger.Info("booking updated", "org_id", orgID, "appointment_id", id)
	s.record(ctx, orgID, events.TypeAppointmentUpdated, &merged)
	return &merged, nil
}

// Reschedule moves a booking to a new start time; staff, service and
// duration default to the existing row when omitted.
func (s *Service) Reschedule(ctx context.Context, orgID, id string, patch ReschedulePatch) (*Appointment, error) {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.String("bookline.appointment_id", id),
	)

	var appt *Appointment
	err := patch.Validate()
	if err == nil {
		appt, err = s.update(ctx, orgID, id, UpdateInput{
			StartsAt:    patch.StartsAt,
			DurationMin: patch.DurationMin,
			StaffID:     patch.StaffID,
			ServiceID:   patch.ServiceID,
		})
	}
	if err != nil {
		span.RecordError(err)
	}
	s.observe("reschedule", started, err)
	return appt, err
}

// Cancel soft-cancels a booking and records who did it. Cancelling an
// already-cancelled booking is a no-op.
func (s *Service) Cancel(ctx context.Context, orgID, id, actor string) error {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.String("bookline.appointment_id", id),
	)

	err := s.cancel(ctx, orgID, id, actor)
	if err != nil {
		span.RecordError(err)
	}
	s.observe("cancel", started, err)
	return err
}

func (s *Service) cancel(ctx context.Context, orgID, id, actor string) error {
	appt, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return storeErr(err)
	}
	if appt.Status == StatusCancelled {
		return nil
	}
	now := s.now().UTC()
	appt.Status = StatusCancelled
	appt.CancelledAt = &now
	appt.CancelledBy = actor
	appt.UpdatedAt = now
	if err := s.store.Update(ctx, appt); err != nil {
		return storeErr(err)
	}
	s.logger.Info("booking cancelled", "org_id", orgID, "appointment_id", id, "actor", actor)
	s.record(ctx, orgID, events.TypeAppointmentCancelled, appt)
	return nil
}

// UndoCancel restores a cancelled booking to SCHEDULED, but only within the
// grace window measured from cancelledAt. The server is authoritative here:
// a stale undo is rejected no matter what the client countdown showed.
func (s *Service) UndoCancel(ctx context.Context, orgID, id string, windowSeconds int) error {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.undo_cancel")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.String("bookline.appointment_id", id),
	)

	err := s.undoCancel(ctx, orgID, id, windowSeconds)
	if err != nil {
		span.RecordError(err)
	}
	s.observe("undo_cancel", started, err)
	return err
}

func (s *Service) undoCancel(ctx context.Context, orgID, id string, windowSeconds int) error {
	appt, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return storeErr(err)
	}
	if appt.Status != StatusCancelled || appt.CancelledAt == nil {
		return &Error{Kind: KindNotFound, Message: "there is no cancellation to undo"}
	}
	if windowSeconds <= 0 {
		return &Error{Kind: KindNotFound, Message: "the cancellation can no longer be undone"}
	}
	if s.now().Sub(*appt.CancelledAt) > time.Duration(windowSeconds)*time.Second {
		return &Error{Kind: KindNotFound, Message: "the cancellation can no longer be undone"}
	}

	appt.Status = StatusScheduled
	appt.CancelledAt = nil
	appt.CancelledBy = ""
	appt.UpdatedAt = s.now().UTC()
	// The slot may have been rebooked while this one sat cancelled, so the
	// restore goes through the checked write.
	if err := s.store.UpdateChecked(ctx, appt); err != nil {
		return storeErr(err)
	}
	s.logger.Info("booking cancellation undone", "org_id", orgID, "appointment_id", id)
	s.record(ctx, orgID, events.TypeAppointmentRestored, appt)
	return nil
}

// Duplicate copies a booking's staff/service/customer/notes to a new row
// shifted by daysOffset days (default one week), re-validating the shifted
// interval.
func (s *Service) Duplicate(ctx context.Context, orgID, id string, daysOffset int) (*Appointment, error) {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.duplicate")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.String("bookline.appointment_id", id),
	)

	appt, err := s.duplicate(ctx, orgID, id, daysOffset)
	if err != nil {
		span.RecordError(err)
	}
	s.observe("duplicate", started, err)
	return appt, err
}

func (s *Service) duplicate(ctx context.Context, orgID, id string, daysOffset int) (*Appointment, error) {
	if daysOffset == 0 {
		daysOffset = DefaultDuplicateOffsetDays
	}
	org, err := s.getOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	src, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, storeErr(err)
	}

	shift := time.Duration(daysOffset) * 24 * time.Hour
	start := src.StartsAt.Add(shift)
	duration := int(src.EndsAt.Sub(src.StartsAt) / time.Minute)

	start, end, err := s.prepareInterval(ctx, org, src.StaffID, src.ServiceID, start, duration)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, orgID, src.StaffID, "", start, end); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dup := &Appointment{
		ID:            uuid.New().String(),
		OrgID:         orgID,
		StaffID:       src.StaffID,
		ServiceID:     src.ServiceID,
		CustomerID:    src.CustomerID,
		CustomerName:  src.CustomerName,
		CustomerPhone: src.CustomerPhone,
		StartsAt:      start,
		EndsAt:        end,
		Status:        StatusScheduled,
		Source:        SourceDuplicate,
		Notes:         src.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateChecked(ctx, dup); err != nil {
		return nil, storeErr(err)
	}

	s.logger.Info("booking duplicated",
		"org_id", orgID, "source_id", id, "appointment_id", dup.ID, "days_offset", daysOffset)
	s.record(ctx, orgID, events.TypeAppointmentCreated, dup)
	return dup, nil
}

// Delete hard-deletes a booking regardless of status.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.String("bookline.appointment_id", id),
	)

	appt, err := s.store.GetByID(ctx, orgID, id)
	if err == nil {
		err = s.store.Delete(ctx, orgID, id)
	}
	if err != nil {
		err = storeErr(err)
		span.RecordError(err)
		s.observe("delete", started, err)
		return err
	}

	s.logger.Info("booking deleted", "org_id", orgID, "appointment_id", id)
	s.record(ctx, orgID, events.TypeAppointmentDeleted, appt)
	s.observe("delete", started, nil)
	return nil
}

// UpdateStatus moves a SCHEDULED booking to COMPLETED, CANCELLED or
// NO_SHOW. Terminal states only change back through the undo path.
func (s *Service) UpdateStatus(ctx context.Context, orgID, id string, status Status, actor string) error {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.String("bookline.appointment_id", id),
		attribute.String("bookline.status", string(status)),
	)

	err := s.updateStatus(ctx, orgID, id, status, actor)
	if err != nil {
		span.RecordError(err)
	}
	s.observe("update_status", started, err)
	return err
}

func (s *Service) updateStatus(ctx context.Context, orgID, id string, status Status, actor string) error {
	if !status.Valid() {
		return &Error{Kind: KindMissingField, Message: "status is not a valid value"}
	}
	appt, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return storeErr(err)
	}
	if appt.Status == status {
		return nil
	}
	if appt.Status != StatusScheduled {
		return &Error{Kind: KindConflict, Message: "booking is not in a scheduled state"}
	}

	now := s.now().UTC()
	appt.Status = status
	appt.UpdatedAt = now
	if status == StatusCancelled {
		appt.CancelledAt = &now
		appt.CancelledBy = actor
	}
	if err := s.store.Update(ctx, appt); err != nil {
		return storeErr(err)
	}
	s.logger.Info("booking status updated", "org_id", orgID, "appointment_id", id, "status", status)
	eventType := events.TypeAppointmentUpdated
	if status == StatusCancelled {
		eventType = events.TypeAppointmentCancelled
	}
	s.record(ctx, orgID, eventType, appt)
	return nil
}

// BulkMove shifts every non-cancelled appointment in the range by the given
// minutes. Rows that would cross their local midnight or collide with
// another booking are skipped; the batch never aborts.
func (s *Service) BulkMove(ctx context.Context, orgID string, staffID *string, from, to time.Time, minutes int) (BulkMoveResult, error) {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.bulk_move")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.Int("bookline.move_minutes", minutes),
	)

	result, err := s.bulkMove(ctx, orgID, staffID, from, to, minutes)
	if err != nil {
		span.RecordError(err)
	}
	s.observe("bulk_move", started, err)
	return result, err
}

func (s *Service) bulkMove(ctx context.Context, orgID string, staffID *string, from, to time.Time, minutes int) (BulkMoveResult, error) {
	var result BulkMoveResult
	if minutes == 0 {
		return result, nil
	}
	org, err := s.getOrg(ctx, orgID)
	if err != nil {
		return result, err
	}
	appts, err := s.store.ListRange(ctx, orgID, from, to)
	if err != nil {
		return result, wrapError(KindStoreUnavailable, err)
	}

	// Move in shift direction so rows don't trip over batch-mates that
	// haven't moved yet: latest first when shifting forward, earliest first
	// when shifting back.
	sort.Slice(appts, func(i, j int) bool {
		if minutes > 0 {
			return appts[i].StartsAt.After(appts[j].StartsAt)
		}
		return appts[i].StartsAt.Before(appts[j].StartsAt)
	})

	shift := time.Duration(minutes) * time.Minute
	for _, appt := range appts {
		if !appt.Active() {
			continue
		}
		if staffID != nil && (appt.StaffID == nil || *appt.StaffID != *staffID) {
			continue
		}

		moved := *appt
		moved.StartsAt = appt.StartsAt.Add(shift)
		moved.EndsAt = appt.EndsAt.Add(shift)
		if !timeutil.SameLocalDay(moved.StartsAt, moved.EndsAt.Add(-time.Millisecond), org.Timezone) {
			result.Skipped++
			continue
		}
		moved.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateChecked(ctx, &moved); err != nil {
			if errors.Is(err, ErrConflict) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", appt.ID, err))
			continue
		}
		result.Moved++
		s.record(ctx, orgID, events.TypeAppointmentUpdated, &moved)
	}

	s.logger.Info("bulk move finished",
		"org_id", orgID, "minutes", minutes, "moved", result.Moved, "skipped", result.Skipped)
	return result, nil
}

// BulkCancel soft-cancels every non-cancelled appointment for the staff
// member within the range.
func (s *Service) BulkCancel(ctx context.Context, orgID, staffID string, from, to time.Time, actor string) (int, error) {
	started := s.now()
	ctx, span := bookingsTracer.Start(ctx, "appointments.bulk_cancel")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", orgID),
		attribute.String("bookline.staff_id", staffID),
	)

	count, err := s.bulkCancel(ctx, orgID, staffID, from, to, actor)
	if err != nil {
		span.RecordError(err)
	}
	s.observe("bulk_cancel", started, err)
	return count, err
}

func (s *Service) bulkCancel(ctx context.Context, orgID, staffID string, from, to time.Time, actor string) (int, error) {
	if strings.TrimSpace(staffID) == "" {
		return 0, errMissingField("staff_id")
	}
	appts, err := s.store.ListRange(ctx, orgID, from, to)
	if err != nil {
		return 0, wrapError(KindStoreUnavailable, err)
	}

	cancelled := 0
	now := s.now().UTC()
	for _, appt := range appts {
		if !appt.Active() || appt.StaffID == nil || *appt.StaffID != staffID {
			continue
		}
		appt.Status = StatusCancelled
		appt.CancelledAt = &now
		appt.CancelledBy = actor
		appt.UpdatedAt = now
		if err := s.store.Update(ctx, appt); err != nil {
			return cancelled, storeErr(err)
		}
		cancelled++
		s.record(ctx, orgID, events.TypeAppointmentCancelled, appt)
	}

	s.logger.Info("bulk cancel finished",
		"org_id", orgID, "staff_id", staffID, "cancelled", cancelled, "actor", actor)
	return cancelled, nil
}

// Get returns one appointment by id within the org.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Appointment, error) {
	appt, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return appt, nil
}

// ListEvents returns every appointment intersecting [from, to).
func (s *Service) ListEvents(ctx context.Context, orgID string, from, to time.Time) ([]*Appointment, error) {
	appts, err := s.store.ListRange(ctx, orgID, from, to)
	if err != nil {
		return nil, wrapError(KindStoreUnavailable, err)
	}
	return appts, nil
}

// ListStaffAgenda returns a staff member's non-cancelled appointments for
// the org-local day containing the instant.
func (s *Service) ListStaffAgenda(ctx context.Context, orgID, staffID string, day time.Time) ([]*Appointment, error) {
	org, err := s.getOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	from, to := timeutil.DayBoundsUTC(day, org.Timezone)
	appts, err := s.store.ListRange(ctx, orgID, from, to)
	if err != nil {
		return nil, wrapError(KindStoreUnavailable, err)
	}
	var out []*Appointment
	for _, appt := range appts {
		if !appt.Active() || appt.StaffID == nil || *appt.StaffID != staffID {
			continue
		}
		out = append(out, appt)
	}
	return out, nil
}

func normalizeRef(ref *string) *string {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return nil
	}
	return ref
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
