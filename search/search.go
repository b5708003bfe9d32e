// Package search queries events across calendars and filters them.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cyp0633/calplanner/davclient"
	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/logging"
)

// DefaultUpcomingDays is the window Upcoming uses when none is given.
const DefaultUpcomingDays = 7

// Source lists calendars and their events.
type Source interface {
	ListCalendars(ctx context.Context) ([]davclient.Calendar, error)
	ListEvents(ctx context.Context, calendar string, r davclient.TimeRange, limit int) ([]event.Event, error)
}

// Query selects events. An empty Calendar searches every calendar.
type Query struct {
	Calendar string
	Range    davclient.TimeRange
	Filters  Filters
	// Limit caps the events fetched from each calendar; 0 means no cap.
	Limit int
}

// Engine runs queries against a Source.
type Engine struct {
	source Source
	logger *slog.Logger
	now    func() time.Time
}

// New returns an Engine over source.
func New(source Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{source: source, logger: logger, now: time.Now}
}

// Search returns the events matching q. When searching all calendars a
// calendar that fails to answer is logged and skipped, so the result may be
// partial; only a failure to list the calendars is returned as an error.
func (e *Engine) Search(ctx context.Context, q Query) ([]event.Event, error) {
	if q.Calendar != "" {
		events, err := e.source.ListEvents(ctx, q.Calendar, q.Range, q.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to search calendar %q: %w", q.Calendar, err)
		}
		displayName := e.displayName(ctx, q.Calendar)
		for i := range events {
			events[i].CalendarName = q.Calendar
			events[i].CalendarDisplayName = displayName
		}
		return q.Filters.apply(events), nil
	}

	calendars, err := e.source.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var all []event.Event
	for _, cal := range calendars {
		events, err := e.source.ListEvents(ctx, cal.Name, q.Range, q.Limit)
		if err != nil {
			e.logger.Warn("skipping calendar in search", logging.Calendar(cal.Name), logging.Err(err))
			continue
		}
		for i := range events {
			events[i].CalendarName = cal.Name
			events[i].CalendarDisplayName = cal.DisplayName
		}
		all = append(all, q.Filters.apply(events)...)
	}

	e.logger.Debug("search finished",
		"calendars", len(calendars),
		"matched", len(all))
	return all, nil
}

// displayName looks up the display name of calendar. A failed lookup only
// costs the label, so it is logged and an empty name returned.
func (e *Engine) displayName(ctx context.Context, calendar string) string {
	calendars, err := e.source.ListCalendars(ctx)
	if err != nil {
		e.logger.Warn("failed to look up calendar display name", logging.Calendar(calendar), logging.Err(err))
		return ""
	}
	for _, cal := range calendars {
		if cal.Name == calendar {
			return cal.DisplayName
		}
	}
	return ""
}

// Upcoming returns events starting within the next days, earliest first.
// An empty calendar means all calendars.
func (e *Engine) Upcoming(ctx context.Context, calendar string, days, limit int) ([]event.Event, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	now := e.now()
	events, err := e.Search(ctx, Query{
		Calendar: calendar,
		Range:    davclient.TimeRange{Start: now, End: now.AddDate(0, 0, days)},
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (f Filters) apply(events []event.Event) []event.Event {
	if f.IsEmpty() {
		return events
	}
	kept := events[:0]
	for _, ev := range events {
		if f.Matches(ev) {
			kept = append(kept, ev)
		}
	}
	return kept
}
