package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cyp0633/calplanner/event"
)

// stepMinutes is the distance between candidate slot starts.
const stepMinutes = 30

// Hours is a working day as whole hours, [Start, End).
type Hours struct {
	Start int
	End   int
}

var (
	// BusinessHours is used when business-hours-only is on.
	BusinessHours = Hours{Start: 9, End: 17}
	// ExtendedHours is used otherwise.
	ExtendedHours = Hours{Start: 8, End: 20}
)

func (h Hours) validate() error {
	if h.Start < 0 || h.End > 24 || h.Start >= h.End {
		return fmt.Errorf("invalid working hours %02d:00-%02d:00", h.Start, h.End)
	}
	return nil
}

// period is a span in minutes since midnight.
type period struct {
	start int
	end   int
}

func (p period) overlaps(o period) bool {
	return p.start < o.end && p.end > o.start
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// busyPeriods returns the spans of events starting on day, sorted. Events
// are matched only against their start day. All-day events and events
// without an end have no span and are left out.
func busyPeriods(day time.Time, events []event.Event, loc *time.Location) []period {
	var periods []period
	for _, ev := range events {
		if ev.AllDay || !ev.HasEnd() || ev.Start.IsZero() {
			continue
		}
		start := ev.Start.In(loc)
		if !sameDay(start, day) {
			continue
		}
		periods = append(periods, period{start: minuteOfDay(start), end: minuteOfDay(ev.End.In(loc))})
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].start != periods[j].start {
			return periods[i].start < periods[j].start
		}
		return periods[i].end < periods[j].end
	})
	return periods
}

// parseWindows reads "HH:MM-HH:MM" windows. Malformed entries are dropped.
func parseWindows(raw []string) []period {
	var windows []period
	for _, w := range raw {
		from, to, ok := strings.Cut(strings.TrimSpace(w), "-")
		if !ok {
			continue
		}
		start, err := time.Parse("15:04", strings.TrimSpace(from))
		if err != nil {
			continue
		}
		end, err := time.Parse("15:04", strings.TrimSpace(to))
		if err != nil {
			continue
		}
		windows = append(windows, period{start: minuteOfDay(start), end: minuteOfDay(end)})
	}
	return windows
}

// inWindows reports whether minute lies within any window, bounds included.
func inWindows(minute int, windows []period) bool {
	for _, w := range windows {
		if minute >= w.start && minute <= w.end {
			return true
		}
	}
	return false
}

// daySlots generates the free slots of one day. restrictWindows is set when preferred windows were
// requested, even if none of them parsed.
func daySlots(day time.Time, hours Hours, duration int, busy []period, windows []period, restrictWindows bool) ([]Slot, error) {
	if err := hours.validate(); err != nil {
		return nil, err
	}

	var slots []Slot
	for m := hours.Start * 60; m+duration <= hours.End*60; m += stepMinutes {
		candidate := period{start: m, end: m + duration}
		if conflicts(candidate, busy) {
			continue
		}
		if restrictWindows && !inWindows(m, windows) {
			continue
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, m, 0, 0, day.Location())
		slots = append(slots, Slot{
			Start:           start,
			End:             start.Add(time.Duration(duration) * time.Minute),
			DurationMinutes: duration,
			Date:            day.Format(time.DateOnly),
		})
	}
	return slots, nil
}

func conflicts(slot period, busy []period) bool {
	for _, b := range busy {
		if slot.overlaps(b) {
			return true
		}
	}
	return false
}
