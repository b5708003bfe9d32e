package event

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"

	alarmDescription = "Event reminder"
)

// Encode renders ev as a VCALENDAR holding exactly one VEVENT. now is
// written as CREATED, DTSTAMP and LAST-MODIFIED.
func Encode(ev Event, now time.Time) ([]byte, error) {
	if err := validate(ev); err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	vevent := ical.NewEvent()
	props := vevent.Props

	props.SetText(ical.PropUID, ev.UID)
	props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != "" {
		props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		props.SetText(ical.PropLocation, ev.Location)
	}

	if ev.AllDay {
		setDate(props, ical.PropDateTimeStart, ev.Start)
		if ev.HasEnd() {
			setDate(props, ical.PropDateTimeEnd, ev.End)
		}
	} else {
		props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		if ev.HasEnd() {
			props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
		}
	}

	stamp := now.UTC()
	props.SetDateTime(ical.PropDateTimeStamp, stamp)
	props.SetDateTime(ical.PropCreated, stamp)
	props.SetDateTime(ical.PropLastModified, stamp)

	setValue(props, ical.PropStatus, string(normalizeStatus(ev.Status)))
	priority := ev.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	setValue(props, ical.PropPriority, strconv.Itoa(priority))
	setValue(props, ical.PropClass, string(normalizePrivacy(ev.Privacy)))

	if cats := nonEmpty(ev.Categories); len(cats) > 0 {
		prop := ical.NewProp(ical.PropCategories)
		prop.SetTextList(cats)
		props.Set(prop)
	}

	if ev.IsRecurring() {
		setValue(props, ical.PropRecurrenceRule, strings.TrimPrefix(strings.TrimSpace(ev.RecurrenceRule), "RRULE:"))
	}

	for _, addr := range nonEmpty(ev.Attendees) {
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + stripMailto(addr)
		props.Add(prop)
	}

	if ev.URL != "" {
		setValue(props, ical.PropURL, ev.URL)
	}

	if ev.ReminderMinutes > 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, alarmDescription)
		setValue(alarm.Props, ical.PropTrigger, fmt.Sprintf("-PT%dM", ev.ReminderMinutes))
		vevent.Children = append(vevent.Children, alarm)
	}

	cal.Children = append(cal.Children, vevent.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads the first VEVENT of a calendar resource. Missing STATUS,
// PRIORITY and CLASS take their defaults.
func Decode(data []byte) (*Event, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	events := cal.Events()
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no VEVENT in calendar", ErrParse)
	}
	vevent := events[0]
	props := vevent.Props
	zones := calendarZones(cal)

	ev := &Event{
		UID:         text(props, ical.PropUID),
		Title:       text(props, ical.PropSummary),
		Description: text(props, ical.PropDescription),
		Location:    text(props, ical.PropLocation),
		Status:      normalizeStatus(Status(text(props, ical.PropStatus))),
		Privacy:     normalizePrivacy(Privacy(text(props, ical.PropClass))),
		Priority:    DefaultPriority,
		URL:         rawValue(props, ical.PropURL),
	}

	if prop := props.Get(ical.PropDateTimeStart); prop != nil {
		start, allDay, err := decodeTime(prop, zones)
		if err != nil {
			return nil, fmt.Errorf("%w: DTSTART: %v", ErrParse, err)
		}
		ev.Start = start
		ev.AllDay = allDay
	}
	if prop := props.Get(ical.PropDateTimeEnd); prop != nil {
		end, _, err := decodeTime(prop, zones)
		if err != nil {
			return nil, fmt.Errorf("%w: DTEND: %v", ErrParse, err)
		}
		ev.End = end
	}

	if prop := props.Get(ical.PropPriority); prop != nil {
		if p, err := prop.Int(); err == nil {
			ev.Priority = p
		}
	}

	for i := range props[ical.PropCategories] {
		list, err := props[ical.PropCategories][i].TextList()
		if err != nil {
			continue
		}
		ev.Categories = append(ev.Categories, nonEmpty(list)...)
	}

	for _, prop := range props[ical.PropAttendee] {
		if addr := stripMailto(prop.Value); addr != "" {
			ev.Attendees = append(ev.Attendees, addr)
		}
	}

	ev.RecurrenceRule = rawValue(props, ical.PropRecurrenceRule)

	if prop := props.Get(ical.PropCreated); prop != nil {
		ev.Created, _ = prop.DateTime(time.UTC)
	}
	if prop := props.Get(ical.PropLastModified); prop != nil {
		ev.LastModified, _ = prop.DateTime(time.UTC)
	}

	ev.ReminderMinutes = reminderMinutes(vevent.Children)

	return ev, nil
}

func validate(ev Event) error {
	if strings.TrimSpace(ev.UID) == "" {
		return fmt.Errorf("%w: missing UID", ErrInvalid)
	}
	if ev.Start.IsZero() {
		return fmt.Errorf("%w: missing start", ErrInvalid)
	}
	if ev.HasEnd() && ev.End.Before(ev.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalid, ev.End, ev.Start)
	}
	if ev.Priority < 0 || ev.Priority > 9 {
		return fmt.Errorf("%w: priority %d out of range 0-9", ErrInvalid, ev.Priority)
	}
	if ev.ReminderMinutes < 0 {
		return fmt.Errorf("%w: negative reminder", ErrInvalid)
	}
	switch s := normalizeStatus(ev.Status); s {
	case StatusConfirmed, StatusTentative, StatusCancelled:
	default:
		return fmt.Errorf("%w: status %q, want CONFIRMED, TENTATIVE or CANCELLED", ErrInvalid, s)
	}
	switch p := normalizePrivacy(ev.Privacy); p {
	case PrivacyPublic, PrivacyPrivate, PrivacyConfidential:
	default:
		return fmt.Errorf("%w: privacy %q, want PUBLIC, PRIVATE or CONFIDENTIAL", ErrInvalid, p)
	}
	return nil
}

// decodeTime returns the instant and whether the value is a bare date.
// Dates come back as midnight UTC. A TZID that is not an IANA name is
// resolved through the calendar's own VTIMEZONE; without one the value is
// read as floating time in UTC.
func decodeTime(prop *ical.Prop, zones map[string]*vtimezone) (time.Time, bool, error) {
	if prop.ValueType() == ical.ValueDate || len(prop.Value) == len(dateLayout) {
		t, err := time.ParseInLocation(dateLayout, prop.Value, time.UTC)
		return t, true, err
	}
	t, err := prop.DateTime(time.UTC)
	if err == nil {
		return t, false, nil
	}
	tzid := prop.Params.Get(ical.ParamTimezoneID)
	if tzid == "" {
		return t, false, err
	}
	wall, perr := time.ParseInLocation(dateTimeLayout, strings.TrimSuffix(prop.Value, "Z"), time.UTC)
	if perr != nil {
		return time.Time{}, false, err
	}
	if zone, ok := zones[tzid]; ok {
		if loc, ok := zone.locationAt(wall); ok {
			return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc), false, nil
		}
	}
	return wall, false, nil
}

func reminderMinutes(children []*ical.Component) int {
	for _, child := range children {
		if child.Name != ical.CompAlarm {
			continue
		}
		trigger := child.Props.Get(ical.PropTrigger)
		if trigger == nil {
			continue
		}
		d, err := trigger.Duration()
		if err != nil || d >= 0 {
			continue
		}
		return int(-d / time.Minute)
	}
	return 0
}

func setDate(props ical.Props, name string, t time.Time) {
	prop := ical.NewProp(name)
	prop.SetDate(t)
	props.Set(prop)
}

// setValue stores an unescaped value; RRULE and similar structured values
// must not go through TEXT escaping.
func setValue(props ical.Props, name, value string) {
	prop := ical.NewProp(name)
	prop.Value = value
	props.Set(prop)
}

func text(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	s, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return s
}

func rawValue(props ical.Props, name string) string {
	if prop := props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

func stripMailto(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) >= 7 && strings.EqualFold(addr[:7], "mailto:") {
		addr = addr[7:]
	}
	return addr
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
