// Package availability proposes free meeting slots around existing events.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cyp0633/calplanner/davclient"
	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/logging"
	"github.com/cyp0633/calplanner/search"
	"github.com/samber/mo"
)

const (
	// MaxSlots caps the slots returned by Find.
	MaxSlots = 10
	// DefaultRangeDays is the search window when no end date is given.
	DefaultRangeDays = 7
)

// ErrInvalidDuration is returned for a non-positive duration.
var ErrInvalidDuration = errors.New("availability: duration must be positive")

// Searcher fetches the events that may block a slot.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]event.Event, error)
}

// Slot is a proposed meeting time.
type Slot struct {
	Start           time.Time
	End             time.Time
	DurationMinutes int
	// Date is the day the slot belongs to, as YYYY-MM-DD.
	Date string
}

// Constraints shape the generated slots. Absent options take their
// defaults: business hours only and weekends excluded.
type Constraints struct {
	BusinessHoursOnly mo.Option[bool]
	ExcludeWeekends   mo.Option[bool]
	// PreferredWindows are "HH:MM-HH:MM" ranges a slot must start in.
	PreferredWindows []string
	// ExpandRecurring blocks every occurrence of a recurring event instead
	// of only its first instance.
	ExpandRecurring bool
}

// Request asks for free slots of DurationMinutes. Start and End are days;
// only their date in the solver's location matters, and both are
// inclusive. A zero Start means today and a zero End means Start plus
// DefaultRangeDays.
type Request struct {
	DurationMinutes int
	Attendees       []string
	Start           time.Time
	End             time.Time
	Constraints     Constraints
}

// Solver finds free slots.
type Solver struct {
	searcher Searcher
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
	business Hours
	extended Hours
}

// Option configures a Solver.
type Option func(*Solver)

// WithLocation sets the zone slots are generated in. The default is
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Solver) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Solver) { s.now = now }
}

// WithWorkingHours overrides BusinessHours and ExtendedHours.
func WithWorkingHours(business, extended Hours) Option {
	return func(s *Solver) {
		s.business = business
		s.extended = extended
	}
}

// New returns a Solver reading events from searcher.
func New(searcher Searcher, logger *slog.Logger, opts ...Option) *Solver {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Solver{
		searcher: searcher,
		logger:   logger,
		loc:      time.Local,
		now:      time.Now,
		business: BusinessHours,
		extended: ExtendedHours,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find returns up to MaxSlots free slots in day order.
func (s *Solver) Find(ctx context.Context, req Request) ([]Slot, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: got %d minutes", ErrInvalidDuration, req.DurationMinutes)
	}

	first := req.Start
	if first.IsZero() {
		first = s.now()
	}
	first = s.midnight(first)
	last := first.AddDate(0, 0, DefaultRangeDays)
	if !req.End.IsZero() {
		last = s.midnight(req.End)
	}
	if last.Before(first) {
		return nil, fmt.Errorf("range end %s before start %s", last.Format(time.DateOnly), first.Format(time.DateOnly))
	}
	rangeEnd := last.AddDate(0, 0, 1)

	events, err := s.searcher.Search(ctx, search.Query{
		Range: davclient.TimeRange{Start: first, End: rangeEnd},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load busy events: %w", err)
	}

	busy := relevant(events, req.Attendees)
	if req.Constraints.ExpandRecurring {
		busy = s.expand(busy, first, rangeEnd)
	}

	hours := s.extended
	if req.Constraints.BusinessHoursOnly.OrElse(true) {
		hours = s.business
	}
	excludeWeekends := req.Constraints.ExcludeWeekends.OrElse(true)
	windows := parseWindows(req.Constraints.PreferredWindows)
	restrict := len(req.Constraints.PreferredWindows) > 0

	var slots []Slot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if excludeWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			continue
		}
		daily, err := daySlots(day, hours, req.DurationMinutes, busyPeriods(day, busy, s.loc), windows, restrict)
		if err != nil {
			s.logger.Error("failed to generate slots for day",
				"date", day.Format(time.DateOnly),
				logging.Err(err))
			continue
		}
		slots = append(slots, daily...)
		if len(slots) >= MaxSlots {
			break
		}
	}

	if len(slots) > MaxSlots {
		slots = slots[:MaxSlots]
	}
	s.logger.Debug("availability computed",
		"busy_events", len(busy),
		"slots", len(slots))
	return slots, nil
}

func (s *Solver) midnight(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// expand replaces recurring events by their occurrences in [from, to). An
// event whose rule cannot be expanded is kept as it is.
func (s *Solver) expand(events []event.Event, from, to time.Time) []event.Event {
	var out []event.Event
	for _, ev := range events {
		if !ev.IsRecurring() {
			out = append(out, ev)
			continue
		}
		occurrences, err := ev.Occurrences(from, to)
		if err != nil {
			s.logger.Warn("failed to expand recurring event", logging.UID(ev.UID), logging.Err(err))
			out = append(out, ev)
			continue
		}
		out = append(out, occurrences...)
	}
	return out
}

// relevant keeps events involving any of attendees, matched as a
// case-insensitive substring of the joined attendee list. No attendees
// keeps everything.
func relevant(events []event.Event, attendees []string) []event.Event {
	if len(attendees) == 0 {
		return events
	}
	var kept []event.Event
	for _, ev := range events {
		joined := strings.ToLower(strings.Join(ev.Attendees, ","))
		for _, a := range attendees {
			if a = strings.TrimSpace(a); a != "" && strings.Contains(joined, strings.ToLower(a)) {
				kept = append(kept, ev)
				break
			}
		}
	}
	return kept
}
