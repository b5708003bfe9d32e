package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// vtimezone is a VTIMEZONE definition carried inside a calendar resource,
// used for TZIDs such as Exchange's "W. Europe Standard Time" that are not
// in the IANA database.
type vtimezone struct {
	id          string
	observances []observance
}

// observance is one STANDARD or DAYLIGHT block. start is its DTSTART as
// wall-clock time stored in UTC.
type observance struct {
	start  time.Time
	rule   *rrule.RRule
	offset int
}

// calendarZones collects the VTIMEZONE blocks of cal by TZID. Blocks that
// cannot be read are left out.
func calendarZones(cal *ical.Calendar) map[string]*vtimezone {
	zones := make(map[string]*vtimezone)
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			continue
		}
		id := rawValue(child.Props, ical.PropTimezoneID)
		if id == "" {
			continue
		}
		zone := &vtimezone{id: id}
		for _, sub := range child.Children {
			if sub.Name != ical.CompTimezoneStandard && sub.Name != ical.CompTimezoneDaylight {
				continue
			}
			if obs, err := parseObservance(sub); err == nil {
				zone.observances = append(zone.observances, obs)
			}
		}
		if len(zone.observances) > 0 {
			zones[id] = zone
		}
	}
	return zones
}

func parseObservance(comp *ical.Component) (observance, error) {
	var obs observance
	offset, err := parseUTCOffset(rawValue(comp.Props, ical.PropTimezoneOffsetTo))
	if err != nil {
		return obs, err
	}
	obs.offset = offset

	start, err := time.ParseInLocation(dateTimeLayout, rawValue(comp.Props, ical.PropDateTimeStart), time.UTC)
	if err != nil {
		return obs, fmt.Errorf("observance DTSTART: %w", err)
	}
	obs.start = start

	if rule := rawValue(comp.Props, ical.PropRecurrenceRule); rule != "" {
		opt, err := rrule.StrToROption(rule)
		if err != nil {
			return obs, fmt.Errorf("observance RRULE: %w", err)
		}
		opt.Dtstart = start
		if obs.rule, err = rrule.NewRRule(*opt); err != nil {
			return obs, fmt.Errorf("observance RRULE: %w", err)
		}
	}
	return obs, nil
}

// locationAt returns a fixed zone with the offset in force at the
// wall-clock time wall (expressed in UTC). The latest observance onset at
// or before wall wins; before every onset the first observance is used.
func (z *vtimezone) locationAt(wall time.Time) (*time.Location, bool) {
	if len(z.observances) == 0 {
		return nil, false
	}
	best := z.observances[0]
	var bestOnset time.Time
	for _, obs := range z.observances {
		onset := obs.onsetBefore(wall)
		if onset.IsZero() {
			continue
		}
		if bestOnset.IsZero() || onset.After(bestOnset) {
			best, bestOnset = obs, onset
		}
	}
	return time.FixedZone(z.id, best.offset), true
}

func (o observance) onsetBefore(wall time.Time) time.Time {
	if o.start.After(wall) {
		return time.Time{}
	}
	if o.rule == nil {
		return o.start
	}
	if onset := o.rule.Before(wall, true); !onset.IsZero() {
		return onset
	}
	return o.start
}

// parseUTCOffset reads a UTC-OFFSET value such as "+0100" or "-053000"
// into seconds east of UTC.
func parseUTCOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 && len(s) != 7 {
		return 0, fmt.Errorf("invalid UTC offset %q", s)
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("invalid UTC offset %q", s)
	}
	var parts [3]int
	for i := 0; i*2+1 < len(s); i++ {
		n, err := strconv.Atoi(s[i*2+1 : i*2+3])
		if err != nil {
			return 0, fmt.Errorf("invalid UTC offset %q", s)
		}
		parts[i] = n
	}
	return sign * (parts[0]*3600 + parts[1]*60 + parts[2]), nil
}
