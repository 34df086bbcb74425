// Package hours resolves an organization's opening hours into per-day and
// per-week windows expressed as minutes since local midnight.
package hours

import (
	"time"

	"github.com/bookline/bookline/internal/timeutil"
)

// Default windows when an org has configured nothing.
const (
	DefaultOpenMin  = 540  // 09:00
	DefaultCloseMin = 1080 // 18:00

	// Fallback week window when every day of the week is closed.
	FallbackOpenMin  = 540  // 09:00
	FallbackCloseMin = 1020 // 17:00
)

// Row is one weekday's configured open/close window. CloseMin <= OpenMin
// means the org is closed that day.
type Row struct {
	OrgID    string `json:"org_id"`
	Weekday  int    `json:"weekday"` // 0=Sunday .. 6=Saturday
	OpenMin  int    `json:"open_min"`
	CloseMin int    `json:"close_min"`
}

// Window is a resolved open/close span in minutes since local midnight.
type Window struct {
	OpenMin  int  `json:"open_min"`
	CloseMin int  `json:"close_min"`
	Closed   bool `json:"closed"`
}

func closedWindow() Window {
	return Window{Closed: true}
}

// DefaultSchedule returns the fallback schedule used when an org has no
// configured rows: Monday through Friday 09:00-18:00, weekends closed.
func DefaultSchedule() []Row {
	rows := make([]Row, 0, 5)
	for wd := 1; wd <= 5; wd++ {
		rows = append(rows, Row{Weekday: wd, OpenMin: DefaultOpenMin, CloseMin: DefaultCloseMin})
	}
	return rows
}

// ForWeekday resolves the window for one weekday. With no rows configured at
// all the default schedule applies; with rows configured, a missing weekday
// falls back to 09:00-18:00.
func ForWeekday(rows []Row, weekday int) Window {
	if len(rows) == 0 {
		rows = DefaultSchedule()
		for _, row := range rows {
			if row.Weekday == weekday {
				return Window{OpenMin: row.OpenMin, CloseMin: row.CloseMin}
			}
		}
		return closedWindow()
	}
	for _, row := range rows {
		if row.Weekday != weekday {
			continue
		}
		if row.CloseMin <= row.OpenMin {
			return closedWindow()
		}
		return Window{OpenMin: row.OpenMin, CloseMin: row.CloseMin}
	}
	return Window{OpenMin: DefaultOpenMin, CloseMin: DefaultCloseMin}
}

// DayWindow resolves the window for the calendar day containing the instant
// in tz.
func DayWindow(rows []Row, tz string, day time.Time) Window {
	return ForWeekday(rows, timeutil.WeekdayIndex(day, tz))
}

// WeekWindow aggregates the seven days starting at weekStart into one
// vertical window: the earliest open and the latest close across days that
// are open at all. When the whole week is closed the 09:00-17:00 fallback is
// returned with AllClosed set.
type WeekView struct {
	OpenMin   int  `json:"open_min"`
	CloseMin  int  `json:"close_min"`
	AllClosed bool `json:"all_closed"`
}

func WeekWindow(rows []Row, tz string, weekStart time.Time) WeekView {
	openMin := -1
	closeMin := -1
	for i := 0; i < 7; i++ {
		w := DayWindow(rows, tz, weekStart.AddDate(0, 0, i))
		if w.Closed {
			continue
		}
		if openMin == -1 || w.OpenMin < openMin {
			openMin = w.OpenMin
		}
		if w.CloseMin > closeMin {
			closeMin = w.CloseMin
		}
	}
	if openMin == -1 {
		return WeekView{OpenMin: FallbackOpenMin, CloseMin: FallbackCloseMin, AllClosed: true}
	}
	return WeekView{OpenMin: openMin, CloseMin: closeMin}
}

// Contains reports whether a [startMin, endMin) span in local minutes fits
// inside the window.
func (w Window) Contains(startMin, endMin int) bool {
	if w.Closed {
		return false
	}
	return startMin >= w.OpenMin && endMin <= w.CloseMin
}
