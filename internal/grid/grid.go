// Package grid turns persisted appointments into pixel-positioned blocks for
// the day and week calendar views. The engine is pure: the same appointments,
// opening hours, timezone and window always produce the same layout.
package grid

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/bookline/bookline/internal/appointments"
	"github.com/bookline/bookline/internal/hours"
	"github.com/bookline/bookline/internal/timeutil"
)

// WindowMode selects the displayed range.
type WindowMode string

const (
	ModeDay  WindowMode = "day"
	ModeWeek WindowMode = "week"
)

// Rendering defaults.
const (
	DefaultPxPerSlot   = 48 // pixels per slot row
	DefaultSlotMinutes = 30
	DefaultMinBlockPx  = 16 // zero-length appointments stay visible
	PaletteSize        = 8
)

// Block is the positioned representation of one appointment.
type Block struct {
	ID              string `json:"id"`
	TopOffset       int    `json:"top_offset"`
	Height          int    `json:"height"`
	StaffID         string `json:"staff_id,omitempty"`
	ServiceID       string `json:"service_id,omitempty"`
	StartsAtISO     string `json:"starts_at_iso"`
	EndsAtISO       string `json:"ends_at_iso"`
	DisplayTitle    string `json:"display_title"`
	DisplaySubtitle string `json:"display_subtitle"`
	ColorBucket     int    `json:"color_bucket"`
	Cancelled       bool   `json:"cancelled,omitempty"`
	OffHours        bool   `json:"off_hours,omitempty"`
	DayIndex        int    `json:"day_index"` // 0-based offset from the window's first day
}

// Band is a shaded vertical span inside a day column, in pixels.
type Band struct {
	Top    int `json:"top"`
	Height int `json:"height"`
}

// DayOverlay describes the off-hours shading for one displayed day.
type DayOverlay struct {
	DayIndex int    `json:"day_index"`
	Closed   bool   `json:"closed"`
	Bands    []Band `json:"bands,omitempty"`
}

// Config parameterizes a layout run. Anchor is any instant inside the
// displayed day (day view) or the first displayed day (week view).
type Config struct {
	Timezone    string
	Mode        WindowMode
	Anchor      time.Time
	PxPerSlot   int
	SlotMinutes int
	MinBlockPx  int
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeDay
	}
	if c.PxPerSlot <= 0 {
		c.PxPerSlot = DefaultPxPerSlot
	}
	if c.SlotMinutes <= 0 {
		c.SlotMinutes = DefaultSlotMinutes
	}
	if c.MinBlockPx <= 0 {
		c.MinBlockPx = DefaultMinBlockPx
	}
	return c
}

func (c Config) days() int {
	if c.Mode == ModeWeek {
		return 7
	}
	return 1
}

// minutesToPx converts a span in minutes to pixels at the configured density.
func (c Config) minutesToPx(minutes int) int {
	return minutes * c.PxPerSlot / c.SlotMinutes
}

// Layout is the full view model for one rendered range.
type Layout struct {
	WindowStartMin int          `json:"window_start_min"`
	WindowEndMin   int          `json:"window_end_min"`
	Blocks         []Block      `json:"blocks"`
	Overlays       []DayOverlay `json:"overlays"`
	NowOffsetPx    *int         `json:"now_offset_px,omitempty"`
	NowDayIndex    int          `json:"now_day_index,omitempty"`
}

// VerticalWindow resolves the active [start, end] minute window for the
// displayed range: the day's own open/close for day view, the min-open and
// max-close across the seven days for week view.
func VerticalWindow(rows []hours.Row, tz string, mode WindowMode, anchor time.Time) (int, int) {
	if mode == ModeWeek {
		week := hours.WeekWindow(rows, tz, anchor)
		return week.OpenMin, week.CloseMin
	}
	day := hours.DayWindow(rows, tz, anchor)
	if day.Closed {
		return hours.FallbackOpenMin, hours.FallbackCloseMin
	}
	return day.OpenMin, day.CloseMin
}

// ColorBucket maps a staff name to a stable palette index. The same name
// always lands in the same bucket, with no stored color table.
func ColorBucket(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() % PaletteSize)
}

// LayoutBlocks positions the appointments inside the configured window. The
// optional now instant adds a current-time marker when it falls inside the
// displayed range.
func LayoutBlocks(appts []*appointments.Appointment, rows []hours.Row, cfg Config, now time.Time) Layout {
	cfg = cfg.withDefaults()
	tz := cfg.Timezone
	windowStart, windowEnd := VerticalWindow(rows, tz, cfg.Mode, cfg.Anchor)

	layout := Layout{
		WindowStartMin: windowStart,
		WindowEndMin:   windowEnd,
		Blocks:         make([]Block, 0, len(appts)),
	}

	firstDay, _ := timeutil.DayBoundsUTC(cfg.Anchor, tz)
	loc := timeutil.Location(tz)

	for _, appt := range appts {
		dayIdx := dayIndex(firstDay, appt.StartsAt, tz)
		if dayIdx < 0 || dayIdx >= cfg.days() {
			continue
		}

		startMin := timeutil.MinutesFromMidnight(appt.StartsAt, tz)
		durationMin := timeutil.ElapsedLocalMinutes(appt.StartsAt, appt.EndsAt, tz)

		dayWindow := hours.DayWindow(rows, tz, appt.StartsAt)
		height := cfg.minutesToPx(durationMin)
		if height < cfg.MinBlockPx {
			height = cfg.MinBlockPx
		}

		title := appt.CustomerName
		if title == "" {
			title = "(no name)"
		}
		localStart := appt.StartsAt.In(loc)
		localEnd := appt.EndsAt.In(loc)

		layout.Blocks = append(layout.Blocks, Block{
			ID:              appt.ID,
			TopOffset:       cfg.minutesToPx(startMin - windowStart),
			Height:          height,
			StaffID:         deref(appt.StaffID),
			ServiceID:       deref(appt.ServiceID),
			StartsAtISO:     appt.StartsAt.Format(time.RFC3339),
			EndsAtISO:       appt.EndsAt.Format(time.RFC3339),
			DisplayTitle:    title,
			DisplaySubtitle: fmt.Sprintf("%s – %s", localStart.Format("15:04"), localEnd.Format("15:04")),
			ColorBucket:     ColorBucket(title),
			Cancelled:       appt.Status == appointments.StatusCancelled,
			OffHours:        !dayWindow.Contains(startMin, startMin+durationMin),
			DayIndex:        dayIdx,
		})
	}

	layout.Overlays = overlays(rows, cfg, windowStart, windowEnd)

	if !now.IsZero() {
		nowIdx := dayIndex(firstDay, now, tz)
		if nowIdx >= 0 && nowIdx < cfg.days() {
			nowMin := timeutil.MinutesFromMidnight(now, tz)
			if nowMin >= windowStart && nowMin <= windowEnd {
				offset := cfg.minutesToPx(nowMin - windowStart)
				layout.NowOffsetPx = &offset
				layout.NowDayIndex = nowIdx
			}
		}
	}

	return layout
}

// overlays computes per-day off-hours shading: the spans of the vertical
// window before that day's open and after its close, or a full overlay on a
// closed day.
func overlays(rows []hours.Row, cfg Config, windowStart, windowEnd int) []DayOverlay {
	out := make([]DayOverlay, 0, cfg.days())
	for i := 0; i < cfg.days(); i++ {
		day := cfg.Anchor.AddDate(0, 0, i)
		w := hours.DayWindow(rows, cfg.Timezone, day)
		overlay := DayOverlay{DayIndex: i}
		if w.Closed {
			overlay.Closed = true
			overlay.Bands = []Band{{Top: 0, Height: cfg.minutesToPx(windowEnd - windowStart)}}
			out = append(out, overlay)
			continue
		}
		if w.OpenMin > windowStart {
			overlay.Bands = append(overlay.Bands, Band{
				Top:    0,
				Height: cfg.minutesToPx(w.OpenMin - windowStart),
			})
		}
		if w.CloseMin < windowEnd {
			overlay.Bands = append(overlay.Bands, Band{
				Top:    cfg.minutesToPx(w.CloseMin - windowStart),
				Height: cfg.minutesToPx(windowEnd - w.CloseMin),
			})
		}
		out = append(out, overlay)
	}
	return out
}

// dayIndex returns how many local calendar days t falls after the day
// containing firstDay, using local dates so DST days still count as one day.
func dayIndex(firstDay, t time.Time, tz string) int {
	loc := timeutil.Location(tz)
	a := firstDay.In(loc)
	b := t.In(loc)
	aDate := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bDate := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bDate.Sub(aDate) / (24 * time.Hour))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
