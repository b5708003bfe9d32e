package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrences bounds a single expansion.
const maxOccurrences = 1000

// ValidateRecurrence checks that rule is an RRULE value rrule-go can parse.
// An empty rule is valid.
func ValidateRecurrence(rule string) error {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if rule == "" {
		return nil
	}
	if _, err := rrule.StrToROption(rule); err != nil {
		return fmt.Errorf("%w: recurrence rule %q: %v", ErrInvalid, rule, err)
	}
	return nil
}

// Occurrences returns the concrete instances of e whose start falls in
// [from, to). Each instance keeps the original duration. A non-recurring
// event yields itself when its start is inside the range.
func (e Event) Occurrences(from, to time.Time) ([]Event, error) {
	if !e.IsRecurring() {
		if !e.Start.Before(from) && e.Start.Before(to) {
			return []Event{e.Clone()}, nil
		}
		return nil, nil
	}

	rule := strings.TrimPrefix(strings.TrimSpace(e.RecurrenceRule), "RRULE:")
	set, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s",
		e.Start.UTC().Format("20060102T150405Z"), rule))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", rule, err)
	}

	dur, hasDur := e.Duration()
	starts := set.Between(from, to, true)
	var out []Event
	for _, start := range starts {
		if !start.Before(to) {
			continue
		}
		if len(out) == maxOccurrences {
			break
		}
		occ := e.Clone()
		occ.Start = start.In(e.Start.Location())
		if hasDur {
			occ.End = occ.Start.Add(dur)
		}
		out = append(out, occ)
	}
	return out, nil
}
