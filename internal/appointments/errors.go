package appointments

import (
	"errors"
	"fmt"
)

// Kind classifies a booking error. Every validation failure maps to exactly
// one kind with one stable, human-readable message; callers switch on the
// kind, users see the message as-is.
type Kind string

const (
	KindInvalidTime         Kind = "invalid_time"
	KindMissingField        Kind = "missing_field"
	KindCrossesDayBoundary  Kind = "crosses_day_boundary"
	KindDurationTooShort    Kind = "duration_too_short"
	KindOwnershipViolation  Kind = "ownership_violation"
	KindOutsideOpeningHours Kind = "outside_opening_hours"
	KindConflict            Kind = "booking_conflict"
	KindNotFound            Kind = "not_found"
	KindStoreUnavailable    Kind = "store_unavailable"
)

var kindMessages = map[Kind]string{
	KindInvalidTime:         "the start time could not be understood",
	KindMissingField:        "a required field is missing",
	KindCrossesDayBoundary:  "bookings can't span multiple days",
	KindDurationTooShort:    "the booking is too short",
	KindOwnershipViolation:  "staff or service does not belong to this organization",
	KindOutsideOpeningHours: "the requested time is outside opening hours",
	KindConflict:            "this staff member is already booked at that time",
	KindNotFound:            "booking not found",
	KindStoreUnavailable:    "the booking store is temporarily unavailable",
}

// Error is a typed booking failure returned across the command boundary.
// Nothing is thrown; the rejected operation performs no partial write.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// newError builds an Error with the kind's stable message.
func newError(kind Kind) *Error {
	return &Error{Kind: kind, Message: kindMessages[kind]}
}

func wrapError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: kindMessages[kind], cause: cause}
}

func errMissingField(field string) *Error {
	return &Error{Kind: KindMissingField, Message: fmt.Sprintf("%s is required", field)}
}

// KindOf extracts the booking error kind, if err is one.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is a booking error of the given kind.
func IsKind(err error, kind Kind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}
