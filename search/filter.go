package search

import (
	"strings"
	"time"

	"github.com/cyp0633/calplanner/event"
	"github.com/samber/mo"
)

// Filters narrows a search. Every present field must hold for an event to
// match; absent fields are ignored.
type Filters struct {
	MinAttendees       mo.Option[int]
	MinDurationMinutes mo.Option[int]
	// Categories matches when any entry is a case-insensitive substring of
	// the event's categories.
	Categories       []string
	Status           mo.Option[string]
	TitleContains    mo.Option[string]
	LocationContains mo.Option[string]
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.MinAttendees.IsAbsent() &&
		f.MinDurationMinutes.IsAbsent() &&
		len(f.Categories) == 0 &&
		f.Status.IsAbsent() &&
		f.TitleContains.IsAbsent() &&
		f.LocationContains.IsAbsent()
}

// Matches reports whether ev satisfies every present filter.
func (f Filters) Matches(ev event.Event) bool {
	if n, ok := f.MinAttendees.Get(); ok && len(ev.Attendees) < n {
		return false
	}
	if m, ok := f.MinDurationMinutes.Get(); ok && !meetsDuration(ev, m) {
		return false
	}
	if len(f.Categories) > 0 && !matchesCategory(ev.Categories, f.Categories) {
		return false
	}
	if s, ok := f.Status.Get(); ok && !strings.EqualFold(string(ev.Status), s) {
		return false
	}
	if s, ok := f.TitleContains.Get(); ok && !containsFold(ev.Title, s) {
		return false
	}
	if s, ok := f.LocationContains.Get(); ok && !containsFold(ev.Location, s) {
		return false
	}
	return true
}

// durationUnknown is the outcome for an event whose duration cannot be
// computed: the duration filter passes it.
const durationUnknown = true

func meetsDuration(ev event.Event, minutes int) bool {
	d, ok := ev.Duration()
	if !ok {
		return durationUnknown
	}
	return d >= time.Duration(minutes)*time.Minute
}

func matchesCategory(have, want []string) bool {
	joined := strings.ToLower(strings.Join(have, ","))
	for _, w := range want {
		if w = strings.TrimSpace(w); w != "" && strings.Contains(joined, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
