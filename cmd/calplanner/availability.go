package main

import (
	"fmt"
	"time"

	"github.com/cyp0633/calplanner/availability"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

func newAvailabilityCmd(a *app) *cobra.Command {
	var (
		duration        int
		attendees       []string
		start, end      string
		businessHours   bool
		excludeWeekends bool
		windows         []string
		expand          bool
	)
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Find free meeting slots",
		Long: fmt.Sprintf(`Find up to %d free slots between --start and --end (both inclusive).
Events in any calendar block a slot; with --attendees only events that
list one of them do.`, availability.MaxSlots),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			req := availability.Request{
				DurationMinutes: duration,
				Attendees:       attendees,
				Constraints: availability.Constraints{
					PreferredWindows: windows,
					ExpandRecurring:  expand,
				},
			}
			if req.Start, err = parseDay(start, a.loc); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if req.End, err = parseDay(end, a.loc); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			fs := cmd.Flags()
			if fs.Changed("business-hours") {
				req.Constraints.BusinessHoursOnly = mo.Some(businessHours)
			}
			if fs.Changed("exclude-weekends") {
				req.Constraints.ExcludeWeekends = mo.Some(excludeWeekends)
			}

			slots, err := p.FindAvailability(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), slots)
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&duration, "duration", 60, "Meeting length in minutes")
	fs.StringSliceVar(&attendees, "attendees", nil, "Only consider events with these attendees")
	fs.StringVar(&start, "start", "", "First day as YYYY-MM-DD (default today)")
	fs.StringVar(&end, "end", "", fmt.Sprintf("Last day as YYYY-MM-DD (default %d days after start)", availability.DefaultRangeDays))
	fs.BoolVar(&businessHours, "business-hours", true, "Only propose slots within business hours")
	fs.BoolVar(&excludeWeekends, "exclude-weekends", true, "Skip Saturdays and Sundays")
	fs.StringSliceVar(&windows, "window", nil, "Preferred start window as HH:MM-HH:MM (repeatable)")
	fs.BoolVar(&expand, "expand-recurring", false, "Block every occurrence of recurring events")
	return cmd
}

// parseDay reads an optional day; an empty value is the zero time.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, _, err := parseTime(s, loc)
	return t, err
}
