package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecurrence(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		wantErr bool
	}{
		{name: "empty", rule: ""},
		{name: "daily count", rule: "FREQ=DAILY;COUNT=3"},
		{name: "with prefix", rule: "RRULE:FREQ=WEEKLY;BYDAY=MO,WE"},
		{name: "unknown frequency", rule: "FREQ=SOMETIMES", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecurrence(tt.rule)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecurrence() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOccurrencesWeekly(t *testing.T) {
	ev := Event{
		UID:            "weekly",
		Start:          time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		End:            time.Date(2025, 3, 3, 9, 45, 0, 0, time.UTC),
		RecurrenceRule: "FREQ=WEEKLY;COUNT=10",
	}

	occ, err := ev.Occurrences(
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, occ, 3)
	for i, o := range occ {
		assert.Equal(t, 3+7*i, o.Start.Day())
		assert.Equal(t, 45*time.Minute, o.End.Sub(o.Start))
		assert.Equal(t, "weekly", o.UID)
	}
}

func TestOccurrencesSingleEvent(t *testing.T) {
	ev := Event{UID: "once", Start: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)}
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	occ, err := ev.Occurrences(from, from.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Len(t, occ, 1)

	occ, err = ev.Occurrences(from.AddDate(0, 1, 0), from.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Empty(t, occ)
}
