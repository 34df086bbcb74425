// Package timeutil holds the timezone kernel: pure helpers that convert
// between UTC instants and an organization's wall-clock time. Everything is
// parameterized by an IANA timezone name; the process-local timezone is
// never consulted.
package timeutil

import "time"

// GridStepMinutes is the scheduling grid every appointment boundary snaps to.
const GridStepMinutes = 5

// Location resolves an IANA timezone name, falling back to UTC when the
// name is empty or unknown.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MinutesFromMidnight returns wall-clock minutes since 00:00 in tz for the
// given UTC instant.
func MinutesFromMidnight(t time.Time, tz string) int {
	local := t.In(Location(tz))
	return local.Hour()*60 + local.Minute()
}

// WeekdayIndex returns the weekday of the instant in tz, 0=Sunday..6=Saturday.
func WeekdayIndex(t time.Time, tz string) int {
	return int(t.In(Location(tz)).Weekday())
}

// SameLocalDay reports whether both instants fall on the same calendar date
// in tz.
func SameLocalDay(a, b time.Time, tz string) bool {
	loc := Location(tz)
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DayBoundsUTC returns the UTC instants for 00:00:00 and 23:59:59.999 of
// tz's calendar day containing the instant.
func DayBoundsUTC(t time.Time, tz string) (time.Time, time.Time) {
	loc := Location(tz)
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start.UTC(), end.UTC()
}

// SnapToGrid rounds the instant to the nearest multiple of stepMinutes on
// the UTC timeline. Ties round up.
func SnapToGrid(t time.Time, stepMinutes int) time.Time {
	if stepMinutes <= 0 {
		stepMinutes = GridStepMinutes
	}
	step := time.Duration(stepMinutes) * time.Minute
	return t.Add(step / 2).Truncate(step)
}

// ElapsedLocalMinutes returns the wall-clock minutes between two instants on
// the same local day in tz. Unlike a raw UTC subtraction this is stable
// across DST transitions, which is what the calendar grid needs.
func ElapsedLocalMinutes(start, end time.Time, tz string) int {
	elapsed := MinutesFromMidnight(end, tz) - MinutesFromMidnight(start, tz)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
