package davclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListEvents(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddCalendar("work", "Work")

	day := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	etagA := srv.PutRaw("work", "a", mustEncode(t, sampleEvent("a", day)))
	srv.PutRaw("work", "b", mustEncode(t, sampleEvent("b", day.AddDate(0, 0, 1))))
	srv.PutRaw("work", "c", mustEncode(t, sampleEvent("c", day.AddDate(0, 1, 0))))

	tests := []struct {
		name  string
		r     TimeRange
		limit int
		want  []string
	}{
		{name: "everything", want: []string{"a", "b", "c"}},
		{name: "first day", r: TimeRange{Start: day.Add(-time.Hour), End: day.Add(time.Hour)}, want: []string{"a"}},
		{name: "open end", r: TimeRange{Start: day.Add(time.Hour)}, want: []string{"b", "c"}},
		{name: "open start", r: TimeRange{End: day.AddDate(0, 0, 2)}, want: []string{"a", "b"}},
		{name: "limit", limit: 2, want: []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := c.ListEvents(context.Background(), "work", tt.r, tt.limit)
			require.NoError(t, err)
			var uids []string
			for _, ev := range events {
				uids = append(uids, ev.UID)
				assert.Equal(t, "work", ev.CalendarName)
			}
			assert.Equal(t, tt.want, uids)
		})
	}

	events, err := c.ListEvents(context.Background(), "work", TimeRange{}, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, etagA, events[0].ETag)
	assert.Equal(t, srv.Home()+"work/a.ics", events[0].Href)
	assert.Equal(t, []string{"bob@example.com"}, events[0].Attendees)
}

func TestListEventsSkipsBrokenObjects(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddCalendar("work", "Work")
	srv.PutRaw("work", "good", mustEncode(t, sampleEvent("good", fixedNow)))
	srv.PutRaw("work", "broken", []byte("this is not icalendar"))

	events, err := c.ListEvents(context.Background(), "work", TimeRange{}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "good", events[0].UID)
}

func TestListEventsMissingCalendar(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.ListEvents(context.Background(), "nope", TimeRange{}, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
