package event

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEvent() Event {
	return Event{
		UID:             "u-1",
		Title:           "Planning",
		Description:     "quarterly",
		Location:        "HQ",
		Start:           time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		End:             time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		Status:          StatusConfirmed,
		Priority:        5,
		Privacy:         PrivacyPublic,
		Categories:      []string{"work"},
		Attendees:       []string{"a@example.com"},
		ReminderMinutes: 15,
		Href:            "/cal/u-1.ics",
		ETag:            `"1"`,
		CalendarName:    "personal",
	}
}

func TestMergeOnlyTouchesPresentFields(t *testing.T) {
	base := baseEvent()

	got := Merge(base, Patch{Title: mo.Some("Planning v2")})

	want := base.Clone()
	want.Title = "Planning v2"
	assert.Equal(t, want, got)
}

func TestMergeClearsWithZeroValue(t *testing.T) {
	got := Merge(baseEvent(), Patch{
		Location:   mo.Some(""),
		Categories: mo.Some([]string{}),
	})
	assert.Empty(t, got.Location)
	assert.Empty(t, got.Categories)
	assert.Equal(t, "quarterly", got.Description)
}

func TestMergeDoesNotAliasSlices(t *testing.T) {
	base := baseEvent()
	attendees := []string{"x@example.com"}

	got := Merge(base, Patch{Attendees: mo.Some(attendees)})
	attendees[0] = "changed@example.com"
	got.Categories[0] = "mutated"

	assert.Equal(t, []string{"x@example.com"}, got.Attendees)
	assert.Equal(t, []string{"work"}, base.Categories)
}

func TestMergeKeepsIdentity(t *testing.T) {
	base := baseEvent()
	got := Merge(base, Patch{Status: mo.Some(StatusCancelled), Priority: mo.Some(1)})

	assert.Equal(t, base.UID, got.UID)
	assert.Equal(t, base.Href, got.Href)
	assert.Equal(t, base.ETag, got.ETag)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, 1, got.Priority)
}

func TestPatchIsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{ReminderMinutes: mo.Some(0)}.IsEmpty())
}

func TestWithoutIdentity(t *testing.T) {
	c := baseEvent().WithoutIdentity()
	assert.Empty(t, c.UID)
	assert.Empty(t, c.Href)
	assert.Empty(t, c.ETag)
	assert.Empty(t, c.CalendarName)
	assert.Equal(t, "Planning", c.Title)
	assert.Equal(t, []string{"a@example.com"}, c.Attendees)
}

func TestNewMeeting(t *testing.T) {
	ev, err := NewMeeting(MeetingRequest{
		Title:     "Sync",
		Date:      "2025-05-06",
		Time:      "14:30",
		Attendees: []string{"a@example.com"},
	})
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 5, 6, 14, 30, 0, 0, time.UTC).Equal(ev.Start))
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
	assert.Equal(t, DefaultMeetingReminder, ev.ReminderMinutes)
	assert.Equal(t, StatusConfirmed, ev.Status)

	_, err = NewMeeting(MeetingRequest{Title: "Bad", Date: "2025-13-40", Time: "25:00"})
	assert.ErrorIs(t, err, ErrInvalid)
}
