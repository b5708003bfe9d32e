package event

import (
	"time"

	"github.com/samber/mo"
)

// Patch is a partial update. Absent options leave the field untouched;
// a present option with the zero value clears it.
type Patch struct {
	Title           mo.Option[string]
	Description     mo.Option[string]
	Location        mo.Option[string]
	Start           mo.Option[time.Time]
	End             mo.Option[time.Time]
	AllDay          mo.Option[bool]
	Status          mo.Option[Status]
	Priority        mo.Option[int]
	Privacy         mo.Option[Privacy]
	Categories      mo.Option[[]string]
	Attendees       mo.Option[[]string]
	RecurrenceRule  mo.Option[string]
	ReminderMinutes mo.Option[int]
	URL             mo.Option[string]
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return p.Title.IsAbsent() &&
		p.Description.IsAbsent() &&
		p.Location.IsAbsent() &&
		p.Start.IsAbsent() &&
		p.End.IsAbsent() &&
		p.AllDay.IsAbsent() &&
		p.Status.IsAbsent() &&
		p.Priority.IsAbsent() &&
		p.Privacy.IsAbsent() &&
		p.Categories.IsAbsent() &&
		p.Attendees.IsAbsent() &&
		p.RecurrenceRule.IsAbsent() &&
		p.ReminderMinutes.IsAbsent() &&
		p.URL.IsAbsent()
}

// Merge applies p onto a copy of base. UID, Href, ETag and calendar
// provenance are never changed.
func Merge(base Event, p Patch) Event {
	out := base.Clone()

	if v, ok := p.Title.Get(); ok {
		out.Title = v
	}
	if v, ok := p.Description.Get(); ok {
		out.Description = v
	}
	if v, ok := p.Location.Get(); ok {
		out.Location = v
	}
	if v, ok := p.Start.Get(); ok {
		out.Start = v
	}
	if v, ok := p.End.Get(); ok {
		out.End = v
	}
	if v, ok := p.AllDay.Get(); ok {
		out.AllDay = v
	}
	if v, ok := p.Status.Get(); ok {
		out.Status = v
	}
	if v, ok := p.Priority.Get(); ok {
		out.Priority = v
	}
	if v, ok := p.Privacy.Get(); ok {
		out.Privacy = v
	}
	if v, ok := p.Categories.Get(); ok {
		out.Categories = append([]string(nil), v...)
	}
	if v, ok := p.Attendees.Get(); ok {
		out.Attendees = append([]string(nil), v...)
	}
	if v, ok := p.RecurrenceRule.Get(); ok {
		out.RecurrenceRule = v
	}
	if v, ok := p.ReminderMinutes.Get(); ok {
		out.ReminderMinutes = v
	}
	if v, ok := p.URL.Get(); ok {
		out.URL = v
	}

	return out
}
