package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/calplanner/davclient"
	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/search"
	"github.com/samber/mo"
	"github.com/spf13/pflag"
)

// Accepted layouts for --start, --end and similar flags.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// parseTime reads a date or date-time; values without a zone are taken in
// loc. The second result reports whether the value was a bare date.
func parseTime(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, layout == time.DateOnly, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("cannot parse %q as a date or date-time", s)
}

// rangeFlags binds --start and --end.
type rangeFlags struct {
	start string
	end   string
}

func (r *rangeFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&r.start, "start", "", "Range start (YYYY-MM-DD or RFC 3339)")
	fs.StringVar(&r.end, "end", "", "Range end (YYYY-MM-DD or RFC 3339)")
}

func (r rangeFlags) timeRange(loc *time.Location) (davclient.TimeRange, error) {
	var tr davclient.TimeRange
	if r.start != "" {
		t, _, err := parseTime(r.start, loc)
		if err != nil {
			return tr, fmt.Errorf("--start: %w", err)
		}
		tr.Start = t
	}
	if r.end != "" {
		t, _, err := parseTime(r.end, loc)
		if err != nil {
			return tr, fmt.Errorf("--end: %w", err)
		}
		tr.End = t
	}
	return tr, nil
}

// filterFlags binds the search filters.
type filterFlags struct {
	minAttendees int
	minDuration  int
	categories   []string
	status       string
	title        string
	location     string
}

func (f *filterFlags) bind(fs *pflag.FlagSet) {
	fs.IntVar(&f.minAttendees, "min-attendees", 0, "Only events with at least this many attendees")
	fs.IntVar(&f.minDuration, "min-duration", 0, "Only events lasting at least this many minutes")
	fs.StringSliceVar(&f.categories, "category", nil, "Only events in any of these categories")
	fs.StringVar(&f.status, "status", "", "Only events with this status")
	fs.StringVar(&f.title, "title-contains", "", "Only events whose title contains this text")
	fs.StringVar(&f.location, "location-contains", "", "Only events whose location contains this text")
}

func (f filterFlags) filters(fs *pflag.FlagSet) search.Filters {
	out := search.Filters{Categories: f.categories}
	if fs.Changed("min-attendees") {
		out.MinAttendees = mo.Some(f.minAttendees)
	}
	if fs.Changed("min-duration") {
		out.MinDurationMinutes = mo.Some(f.minDuration)
	}
	if fs.Changed("status") {
		out.Status = mo.Some(f.status)
	}
	if fs.Changed("title-contains") {
		out.TitleContains = mo.Some(f.title)
	}
	if fs.Changed("location-contains") {
		out.LocationContains = mo.Some(f.location)
	}
	return out
}

// eventFlags binds every writable event field. Used whole for create and
// as a patch, where only changed flags count, for update. prefix is put in
// front of every flag name.
type eventFlags struct {
	prefix string

	title       string
	description string
	location    string
	start       string
	end         string
	allDay      bool
	status      string
	priority    int
	privacy     string
	categories  []string
	attendees   []string
	rrule       string
	reminder    int
	url         string
}

func (e *eventFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&e.title, e.prefix+"title", "", "Event title")
	fs.StringVar(&e.description, e.prefix+"description", "", "Event description")
	fs.StringVar(&e.location, e.prefix+"location", "", "Event location")
	fs.StringVar(&e.start, e.prefix+"start", "", "Start (YYYY-MM-DD for all-day, or a date-time)")
	fs.StringVar(&e.end, e.prefix+"end", "", "End (YYYY-MM-DD for all-day, or a date-time)")
	fs.BoolVar(&e.allDay, e.prefix+"all-day", false, "All-day event")
	fs.StringVar(&e.status, e.prefix+"status", "", "CONFIRMED, TENTATIVE or CANCELLED")
	fs.IntVar(&e.priority, e.prefix+"priority", 0, "Priority 1-9 (5 is normal)")
	fs.StringVar(&e.privacy, e.prefix+"privacy", "", "PUBLIC, PRIVATE or CONFIDENTIAL")
	fs.StringSliceVar(&e.categories, e.prefix+"categories", nil, "Categories")
	fs.StringSliceVar(&e.attendees, e.prefix+"attendees", nil, "Attendee email addresses")
	fs.StringVar(&e.rrule, e.prefix+"rrule", "", "Recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO")
	fs.IntVar(&e.reminder, e.prefix+"reminder", 0, "Reminder in minutes before start")
	fs.StringVar(&e.url, e.prefix+"url", "", "Event URL")
}

func (e eventFlags) times(loc *time.Location) (start, end time.Time, allDay bool, err error) {
	if e.start != "" {
		var isDate bool
		start, isDate, err = parseTime(e.start, loc)
		if err != nil {
			return start, end, false, fmt.Errorf("--%sstart: %w", e.prefix, err)
		}
		allDay = isDate
	}
	if e.end != "" {
		end, _, err = parseTime(e.end, loc)
		if err != nil {
			return start, end, false, fmt.Errorf("--%send: %w", e.prefix, err)
		}
	}
	allDay = allDay || e.allDay
	if allDay {
		start, end = utcDate(start), utcDate(end)
	}
	return start, end, allDay, nil
}

// utcDate keeps only the calendar date of t, as all-day events store it.
func utcDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (e eventFlags) event(loc *time.Location) (event.Event, error) {
	start, end, allDay, err := e.times(loc)
	if err != nil {
		return event.Event{}, err
	}
	if start.IsZero() {
		return event.Event{}, fmt.Errorf("--%sstart is required", e.prefix)
	}
	return event.Event{
		Title:           e.title,
		Description:     e.description,
		Location:        e.location,
		Start:           start,
		End:             end,
		AllDay:          allDay,
		Status:          event.Status(strings.ToUpper(e.status)),
		Priority:        e.priority,
		Privacy:         event.Privacy(strings.ToUpper(e.privacy)),
		Categories:      e.categories,
		Attendees:       e.attendees,
		RecurrenceRule:  e.rrule,
		ReminderMinutes: e.reminder,
		URL:             e.url,
	}, nil
}

func (e eventFlags) patch(fs *pflag.FlagSet, loc *time.Location) (event.Patch, error) {
	var p event.Patch
	start, end, allDay, err := e.times(loc)
	if err != nil {
		return p, err
	}
	if fs.Changed(e.prefix+"title") {
		p.Title = mo.Some(e.title)
	}
	if fs.Changed(e.prefix+"description") {
		p.Description = mo.Some(e.description)
	}
	if fs.Changed(e.prefix+"location") {
		p.Location = mo.Some(e.location)
	}
	if fs.Changed(e.prefix+"start") {
		p.Start = mo.Some(start)
	}
	if fs.Changed(e.prefix+"end") {
		p.End = mo.Some(end)
	}
	if fs.Changed(e.prefix+"all-day") || fs.Changed(e.prefix+"start") {
		p.AllDay = mo.Some(allDay)
	}
	if fs.Changed(e.prefix+"status") {
		p.Status = mo.Some(event.Status(strings.ToUpper(e.status)))
	}
	if fs.Changed(e.prefix+"priority") {
		p.Priority = mo.Some(e.priority)
	}
	if fs.Changed(e.prefix+"privacy") {
		p.Privacy = mo.Some(event.Privacy(strings.ToUpper(e.privacy)))
	}
	if fs.Changed(e.prefix+"categories") {
		p.Categories = mo.Some(e.categories)
	}
	if fs.Changed(e.prefix+"attendees") {
		p.Attendees = mo.Some(e.attendees)
	}
	if fs.Changed(e.prefix+"rrule") {
		p.RecurrenceRule = mo.Some(e.rrule)
	}
	if fs.Changed(e.prefix+"reminder") {
		p.ReminderMinutes = mo.Some(e.reminder)
	}
	if fs.Changed(e.prefix+"url") {
		p.URL = mo.Some(e.url)
	}
	return p, nil
}
