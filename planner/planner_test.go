package planner

import (
	"context"
	"testing"
	"time"

	"github.com/cyp0633/calplanner/availability"
	"github.com/cyp0633/calplanner/bulk"
	"github.com/cyp0633/calplanner/davclient"
	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/config"
	"github.com/cyp0633/calplanner/internal/davtest"
	"github.com/cyp0633/calplanner/internal/logging"
	"github.com/cyp0633/calplanner/search"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-03-03 is a Monday.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func newTestPlanner(t *testing.T) (*Planner, *davtest.Server) {
	t.Helper()
	srv := davtest.New("alice")
	t.Cleanup(srv.Close)

	p, err := FromConfig(context.Background(), &config.Config{
		Host:     srv.URL,
		Username: "alice",
		Password: "secret",
		Timezone: "UTC",
		Timeout:  5 * time.Second,
	}, logging.Discard(), nil)
	require.NoError(t, err)
	return p, srv
}

func TestMeetingLifecycle(t *testing.T) {
	p, srv := newTestPlanner(t)
	ctx := context.Background()

	_, err := p.CreateCalendar(ctx, "work", "Work", "", "")
	require.NoError(t, err)

	created, err := p.CreateMeeting(ctx, "work", event.MeetingRequest{
		Title:     "Design review",
		Date:      "2025-03-03",
		Time:      "10:00",
		Attendees: []string{"bob@example.com"},
	})
	require.NoError(t, err)

	ev, err := p.GetEvent(ctx, "work", created.UID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), ev.Start.UTC())
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
	assert.Equal(t, event.DefaultMeetingReminder, ev.ReminderMinutes)

	updated, err := p.UpdateEvent(ctx, "work", created.UID, event.Patch{Location: mo.Some("Room 7")}, ev.ETag)
	require.NoError(t, err)
	assert.NotEqual(t, ev.ETag, updated.ETag)

	_, err = p.UpdateEvent(ctx, "work", created.UID, event.Patch{Location: mo.Some("Room 8")}, ev.ETag)
	assert.ErrorIs(t, err, davclient.ErrConflict)

	_, err = p.UpdateEvent(ctx, "work", created.UID, event.Patch{}, "")
	assert.ErrorIs(t, err, event.ErrInvalid)

	res, err := p.DeleteEvent(ctx, "work", created.UID)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Empty(t, srv.UIDs("work"))
}

func TestSearchAvailabilityAndBulk(t *testing.T) {
	p, srv := newTestPlanner(t)
	ctx := context.Background()
	srv.AddCalendar("work", "Work")
	srv.AddCalendar("home", "Home")

	for _, ev := range []struct {
		cal, uid, title string
		hour            int
	}{
		{"work", "w1", "Standup", 10},
		{"work", "w2", "Planning", 13},
		{"home", "h1", "Dentist", 15},
	} {
		start := monday.Add(time.Duration(ev.hour) * time.Hour)
		_, err := p.CreateEvent(ctx, ev.cal, event.Event{UID: ev.uid, Title: ev.title, Start: start, End: start.Add(time.Hour)})
		require.NoError(t, err)
	}

	week := davclient.TimeRange{Start: monday, End: monday.AddDate(0, 0, 7)}
	found, err := p.SearchEvents(ctx, search.Query{Range: week})
	require.NoError(t, err)
	assert.Len(t, found, 3)

	found, err = p.SearchEvents(ctx, search.Query{Range: week, Filters: search.Filters{TitleContains: mo.Some("dent")}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Home", found[0].CalendarDisplayName)

	slots, err := p.FindAvailability(ctx, availability.Request{DurationMinutes: 60, Start: monday, End: monday})
	require.NoError(t, err)
	var got []int
	for _, s := range slots {
		got = append(got, s.Start.Hour()*60+s.Start.Minute())
	}
	assert.Equal(t, []int{9 * 60, 11 * 60, 11*60 + 30, 12 * 60, 14 * 60, 16 * 60}, got)

	res, err := p.BulkOperate(ctx, bulk.Request{
		Operation:      bulk.OpMove,
		Criteria:       bulk.Criteria{Calendar: "work", Range: week},
		TargetCalendar: "home",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalFound)
	assert.Equal(t, 2, res.Succeeded)
	assert.Empty(t, srv.UIDs("work"))
	assert.Len(t, srv.UIDs("home"), 3)

	moved, err := p.ListEvents(ctx, "home", week, 0)
	require.NoError(t, err)
	titles := map[string]bool{}
	for _, ev := range moved {
		titles[ev.Title] = true
	}
	assert.Equal(t, map[string]bool{"Standup": true, "Planning": true, "Dentist": true}, titles)
}

func TestUpcomingEvents(t *testing.T) {
	p, srv := newTestPlanner(t)
	ctx := context.Background()
	srv.AddCalendar("work", "Work")

	now := time.Now().UTC().Truncate(time.Minute)
	for i, offset := range []time.Duration{72 * time.Hour, 2 * time.Hour, 30 * 24 * time.Hour} {
		start := now.Add(offset)
		_, err := p.CreateEvent(ctx, "work", event.Event{
			UID:   []string{"later", "soon", "far"}[i],
			Start: start,
			End:   start.Add(time.Hour),
		})
		require.NoError(t, err)
	}

	events, err := p.UpcomingEvents(ctx, "", 7, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "soon", events[0].UID)
	assert.Equal(t, "later", events[1].UID)
}

func TestFromConfigDiscoversHome(t *testing.T) {
	srv := davtest.New("alice")
	defer srv.Close()
	srv.AddCalendar("work", "Work")

	p, err := FromConfig(context.Background(), &config.Config{
		Host:     srv.URL,
		Username: "alice",
		Password: "secret",
		Discover: true,
		Timeout:  5 * time.Second,
	}, logging.Discard(), nil)
	require.NoError(t, err)

	cals, err := p.ListCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, cals, 1)
	assert.Equal(t, "work", cals[0].Name)
}

func TestFromConfigAppliesWorkingHours(t *testing.T) {
	srv := davtest.New("alice")
	defer srv.Close()

	p, err := FromConfig(context.Background(), &config.Config{
		Host:     srv.URL,
		Username: "alice",
		Password: "secret",
		Timezone: "UTC",
		Availability: config.AvailabilityConfig{
			BusinessHours: config.Hours{Start: 10, End: 12},
		},
	}, logging.Discard(), nil)
	require.NoError(t, err)

	slots, err := p.FindAvailability(context.Background(), availability.Request{DurationMinutes: 60, Start: monday, End: monday})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, 10, slots[0].Start.Hour())
	assert.Equal(t, 11, slots[2].Start.Hour())
}
