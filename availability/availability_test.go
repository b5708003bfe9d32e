package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/logging"
	"github.com/cyp0633/calplanner/search"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	events []event.Event
	err    error
	query  search.Query
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) ([]event.Event, error) {
	f.query = q
	return f.events, f.err
}

// 2025-03-03 is a Monday.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func busy(uid string, start, end time.Time, attendees ...string) event.Event {
	return event.Event{UID: uid, Start: start, End: end, Attendees: attendees}
}

func newSolver(events ...event.Event) (*Solver, *fakeSearcher) {
	f := &fakeSearcher{events: events}
	return New(f, logging.Discard(), WithLocation(time.UTC)), f
}

func starts(slots []Slot) []string {
	var out []string
	for _, s := range slots {
		out = append(out, s.Start.Format("Mon 15:04"))
	}
	return out
}

func TestFindSkipsBusyInterval(t *testing.T) {
	s, _ := newSolver(busy("m", at(monday, 10, 0), at(monday, 11, 0)))

	slots, err := s.Find(context.Background(), Request{DurationMinutes: 30, Start: monday, End: monday})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Mon 09:00", "Mon 09:30", "Mon 11:00", "Mon 11:30", "Mon 12:00",
		"Mon 12:30", "Mon 13:00", "Mon 13:30", "Mon 14:00", "Mon 14:30",
	}, starts(slots))

	blocked := period{start: 10 * 60, end: 11 * 60}
	for _, slot := range slots {
		assert.Equal(t, 30*time.Minute, slot.End.Sub(slot.Start))
		assert.Equal(t, 30, slot.DurationMinutes)
		assert.Equal(t, "2025-03-03", slot.Date)
		assert.False(t, period{start: minuteOfDay(slot.Start), end: minuteOfDay(slot.End)}.overlaps(blocked))
	}
}

func TestFindWeekends(t *testing.T) {
	saturday := monday.AddDate(0, 0, -2)
	s, _ := newSolver()

	slots, err := s.Find(context.Background(), Request{DurationMinutes: 60, Start: saturday, End: monday})
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for _, slot := range slots {
		assert.Equal(t, time.Monday, slot.Start.Weekday())
	}

	slots, err = s.Find(context.Background(), Request{
		DurationMinutes: 60,
		Start:           saturday,
		End:             monday,
		Constraints: Constraints{
			ExcludeWeekends:   mo.Some(false),
			BusinessHoursOnly: mo.Some(false),
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, "Sat 08:00", starts(slots)[0])
	assert.Len(t, slots, MaxSlots)
}

func TestFindLastSlotEndsAtClosing(t *testing.T) {
	s, _ := newSolver(busy("m", at(monday, 9, 0), at(monday, 16, 0)))

	slots, err := s.Find(context.Background(), Request{DurationMinutes: 60, Start: monday, End: monday})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mon 16:00"}, starts(slots))
}

func TestFindPreferredWindows(t *testing.T) {
	s, _ := newSolver()

	tests := []struct {
		name    string
		windows []string
		want    []string
	}{
		{name: "inclusive bounds", windows: []string{"14:00-15:00"}, want: []string{"Mon 14:00", "Mon 14:30", "Mon 15:00"}},
		{name: "malformed skipped", windows: []string{"later", "09:00-09:30", "25:00-26:00"}, want: []string{"Mon 09:00", "Mon 09:30"}},
		{name: "all malformed", windows: []string{"soon"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := s.Find(context.Background(), Request{
				DurationMinutes: 30,
				Start:           monday,
				End:             monday,
				Constraints:     Constraints{PreferredWindows: tt.windows},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, starts(slots))
		})
	}
}

func TestFindAttendeeRelevance(t *testing.T) {
	allDay := busy("bob", at(monday, 9, 0), at(monday, 17, 0), "Bob@Example.com")
	s, _ := newSolver(allDay)

	slots, err := s.Find(context.Background(), Request{DurationMinutes: 30, Start: monday, End: monday, Attendees: []string{"carol"}})
	require.NoError(t, err)
	assert.Len(t, slots, MaxSlots)

	slots, err = s.Find(context.Background(), Request{DurationMinutes: 30, Start: monday, End: monday, Attendees: []string{"bob@example"}})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestFindIgnoresEventsWithoutSpan(t *testing.T) {
	s, _ := newSolver(
		event.Event{UID: "holiday", Start: monday, End: monday.AddDate(0, 0, 1), AllDay: true},
		event.Event{UID: "reminder", Start: at(monday, 9, 0)},
	)

	slots, err := s.Find(context.Background(), Request{DurationMinutes: 30, Start: monday, End: monday})
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, "Mon 09:00", starts(slots)[0])
}

func TestFindMatchesStartDayOnly(t *testing.T) {
	sunday := monday.AddDate(0, 0, -1)
	s, _ := newSolver(busy("overnight", at(sunday, 22, 0), at(monday, 12, 0)))

	slots, err := s.Find(context.Background(), Request{DurationMinutes: 30, Start: monday, End: monday})
	require.NoError(t, err)
	assert.Equal(t, "Mon 09:00", starts(slots)[0])
}

func TestFindExpandRecurring(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	daily := busy("daily", at(monday, 9, 0), at(monday, 17, 0))
	daily.RecurrenceRule = "FREQ=DAILY;COUNT=5"
	s, _ := newSolver(daily)

	slots, err := s.Find(context.Background(), Request{DurationMinutes: 30, Start: tuesday, End: tuesday})
	require.NoError(t, err)
	assert.NotEmpty(t, slots, "only the first instance blocks by default")

	slots, err = s.Find(context.Background(), Request{
		DurationMinutes: 30,
		Start:           tuesday,
		End:             tuesday,
		Constraints:     Constraints{ExpandRecurring: true},
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestFindDefaultsRange(t *testing.T) {
	f := &fakeSearcher{}
	now := time.Date(2025, 3, 5, 15, 30, 0, 0, time.UTC)
	s := New(f, logging.Discard(), WithLocation(time.UTC), WithClock(func() time.Time { return now }))

	_, err := s.Find(context.Background(), Request{DurationMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), f.query.Range.Start)
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), f.query.Range.End)
	assert.True(t, f.query.Filters.IsEmpty())
	assert.Empty(t, f.query.Calendar)
}

func TestFindErrors(t *testing.T) {
	s, f := newSolver()

	_, err := s.Find(context.Background(), Request{DurationMinutes: 0})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = s.Find(context.Background(), Request{DurationMinutes: 30, Start: monday, End: monday.AddDate(0, 0, -1)})
	assert.Error(t, err)

	f.err = errors.New("backend down")
	_, err = s.Find(context.Background(), Request{DurationMinutes: 30, Start: monday, End: monday})
	assert.Error(t, err)
}

func TestFindInvalidWorkingHoursYieldsNoSlots(t *testing.T) {
	s := New(&fakeSearcher{}, logging.Discard(),
		WithLocation(time.UTC),
		WithWorkingHours(Hours{Start: 17, End: 9}, ExtendedHours))

	slots, err := s.Find(context.Background(), Request{DurationMinutes: 30, Start: monday, End: monday})
	require.NoError(t, err)
	assert.Empty(t, slots)
}
