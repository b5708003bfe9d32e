package davclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/xml"
)

// Bounds used when a listing supplies only one side of its range.
var (
	openRangeStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	openRangeEnd   = time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC)
)

// ListEvents runs a calendar-query REPORT over one calendar. A range with
// only one bound gets the other from the open defaults; a zero range
// matches everything. Resources that fail to decode are logged and
// skipped. limit <= 0 means no limit.
func (c *Client) ListEvents(ctx context.Context, calendar string, r TimeRange, limit int) ([]event.Event, error) {
	var start, end *time.Time
	if !r.IsZero() {
		s, e := r.Start, r.End
		if s.IsZero() {
			s = openRangeStart
		}
		if e.IsZero() {
			e = openRangeEnd
		}
		start, end = &s, &e
	}

	href := c.calendarPath(calendar)
	ms, err := c.http.DoREPORT(ctx, href, 1, xml.NewCalendarQuery(start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar %q: %w", calendar, classify(err, nil))
	}

	var events []event.Event
	for _, resp := range ms.Responses {
		if limit > 0 && len(events) >= limit {
			break
		}
		if resp.StatusCode() != 200 {
			continue
		}
		data, ok := resp.Prop(xml.PropCalendarData)
		if !ok || data.TextContent == "" {
			continue
		}

		ev, err := event.Decode([]byte(data.TextContent))
		if err != nil {
			c.logger.Warn("skipping undecodable calendar object",
				"calendar", calendar,
				"href", resp.Href,
				"error", err)
			continue
		}
		if ev.UID == "" {
			ev.UID = strings.TrimSuffix(lastSegment(resp.Href), ".ics")
		}
		ev.Href = resp.Href
		if etag, ok := resp.Prop(xml.PropGetETag); ok {
			ev.ETag = etag.TextContent
		}
		ev.CalendarName = calendar
		events = append(events, *ev)
	}

	c.logger.Debug("listed events",
		"calendar", calendar,
		"count", len(events))
	return events, nil
}
