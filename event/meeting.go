package event

import (
	"fmt"
	"time"
)

const (
	DefaultMeetingMinutes  = 60
	DefaultMeetingReminder = 15
)

// MeetingRequest describes a meeting by wall-clock date and time.
type MeetingRequest struct {
	Title           string
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	DurationMinutes int
	Attendees       []string
	Location        string
	Description     string
	ReminderMinutes int
	TimeZone        *time.Location
}

// NewMeeting turns a MeetingRequest into a timed, confirmed event. Zero
// duration and reminder take the meeting defaults; times are interpreted
// in req.TimeZone, or UTC when none is set.
func NewMeeting(req MeetingRequest) (Event, error) {
	loc := req.TimeZone
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, loc)
	if err != nil {
		return Event{}, fmt.Errorf("%w: meeting date/time: %v", ErrInvalid, err)
	}

	dur := req.DurationMinutes
	if dur <= 0 {
		dur = DefaultMeetingMinutes
	}
	reminder := req.ReminderMinutes
	if reminder <= 0 {
		reminder = DefaultMeetingReminder
	}

	return Event{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		Start:           start,
		End:             start.Add(time.Duration(dur) * time.Minute),
		Status:          StatusConfirmed,
		Priority:        DefaultPriority,
		Privacy:         PrivacyPublic,
		Attendees:       append([]string(nil), req.Attendees...),
		ReminderMinutes: reminder,
	}, nil
}
