// Package event holds the calendar event model and its iCalendar codec.
package event

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrParse is returned when a calendar resource cannot be decoded.
	ErrParse = errors.New("event: malformed calendar data")
	// ErrInvalid is returned when an event cannot be encoded as given.
	ErrInvalid = errors.New("event: invalid event")
)

// Status is the VEVENT STATUS value.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusTentative Status = "TENTATIVE"
	StatusCancelled Status = "CANCELLED"
)

// Privacy is the VEVENT CLASS value.
type Privacy string

const (
	PrivacyPublic       Privacy = "PUBLIC"
	PrivacyPrivate      Privacy = "PRIVATE"
	PrivacyConfidential Privacy = "CONFIDENTIAL"
)

const (
	// DefaultPriority is the "normal" priority used when none is set.
	DefaultPriority = 5
	// ProductID is written as PRODID on every encoded calendar.
	ProductID = "-//cyp0633//calplanner//EN"
)

// Event is a single calendar occurrence as stored on the server.
//
// End is optional and left as the zero time when absent. Href and ETag are
// resource identity assigned by the server; CalendarName and
// CalendarDisplayName are set when the event was collected from a calendar
// scan and are never encoded.
type Event struct {
	UID         string
	Title       string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	Status     Status
	Priority   int
	Privacy    Privacy
	Categories []string
	Attendees  []string

	RecurrenceRule  string
	ReminderMinutes int
	URL             string

	Created      time.Time
	LastModified time.Time

	Href                string
	ETag                string
	CalendarName        string
	CalendarDisplayName string
}

// HasEnd reports whether the event carries an end instant.
func (e Event) HasEnd() bool {
	return !e.End.IsZero()
}

// Duration returns End-Start, and false when either bound is missing.
func (e Event) Duration() (time.Duration, bool) {
	if e.Start.IsZero() || e.End.IsZero() {
		return 0, false
	}
	return e.End.Sub(e.Start), true
}

// IsRecurring reports whether an RRULE is attached.
func (e Event) IsRecurring() bool {
	return strings.TrimSpace(e.RecurrenceRule) != ""
}

// Clone returns a copy that shares no slices with e.
func (e Event) Clone() Event {
	c := e
	c.Categories = append([]string(nil), e.Categories...)
	c.Attendees = append([]string(nil), e.Attendees...)
	return c
}

// WithoutIdentity returns a copy stripped of UID, resource identity and
// calendar provenance, ready to be created somewhere else.
func (e Event) WithoutIdentity() Event {
	c := e.Clone()
	c.UID = ""
	c.Href = ""
	c.ETag = ""
	c.CalendarName = ""
	c.CalendarDisplayName = ""
	c.Created = time.Time{}
	c.LastModified = time.Time{}
	return c
}

func normalizeStatus(s Status) Status {
	if s == "" {
		return StatusConfirmed
	}
	return Status(strings.ToUpper(string(s)))
}

func normalizePrivacy(p Privacy) Privacy {
	if p == "" {
		return PrivacyPublic
	}
	return Privacy(strings.ToUpper(string(p)))
}
