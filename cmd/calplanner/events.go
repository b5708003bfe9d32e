package main

import (
	"errors"
	"fmt"

	"github.com/cyp0633/calplanner/event"
	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	var (
		rng   rangeFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events CALENDAR",
		Short: "List events in one calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			tr, err := rng.timeRange(a.loc)
			if err != nil {
				return err
			}
			events, err := p.ListEvents(cmd.Context(), args[0], tr, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
	rng.bind(cmd.Flags())
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events (0 for no limit)")
	return cmd
}

func newEventCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Get, create, update or delete a single event",
	}

	get := &cobra.Command{
		Use:   "get CALENDAR UID",
		Short: "Show one event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			ev, err := p.GetEvent(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ev)
		},
	}

	var (
		createFlags eventFlags
		uid         string
	)
	create := &cobra.Command{
		Use:   "create CALENDAR",
		Short: "Create an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			ev, err := createFlags.event(a.loc)
			if err != nil {
				return err
			}
			ev.UID = uid
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			res, err := p.CreateEvent(cmd.Context(), args[0], ev)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	createFlags.bind(create.Flags())
	create.Flags().StringVar(&uid, "uid", "", "Event UID (generated when empty)")

	var (
		updateFlags eventFlags
		etag        string
	)
	update := &cobra.Command{
		Use:   "update CALENDAR UID",
		Short: "Change the given fields of an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			patch, err := updateFlags.patch(cmd.Flags(), a.loc)
			if err != nil {
				return err
			}
			if patch.IsEmpty() {
				return errors.New("nothing to update: set at least one event flag")
			}
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			res, err := p.UpdateEvent(cmd.Context(), args[0], args[1], patch, etag)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	updateFlags.bind(update.Flags())
	update.Flags().StringVar(&etag, "etag", "", "Only update if the event still has this etag")

	del := &cobra.Command{
		Use:   "delete CALENDAR UID",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			res, err := p.DeleteEvent(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !res.Found {
				fmt.Fprintf(cmd.OutOrStdout(), "event %s was already gone\n", args[1])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted event %s\n", args[1])
			return nil
		},
	}

	cmd.AddCommand(get, create, update, del)
	return cmd
}

func newMeetingCmd(a *app) *cobra.Command {
	var req event.MeetingRequest
	cmd := &cobra.Command{
		Use:   "meeting CALENDAR",
		Short: "Create a meeting from a date and a wall-clock time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			res, err := p.CreateMeeting(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&req.Title, "title", "", "Meeting title")
	fs.StringVar(&req.Date, "date", "", "Date as YYYY-MM-DD")
	fs.StringVar(&req.Time, "time", "", "Start time as HH:MM")
	fs.IntVar(&req.DurationMinutes, "duration", event.DefaultMeetingMinutes, "Length in minutes")
	fs.StringSliceVar(&req.Attendees, "attendees", nil, "Attendee email addresses")
	fs.StringVar(&req.Location, "location", "", "Location")
	fs.StringVar(&req.Description, "description", "", "Description")
	fs.IntVar(&req.ReminderMinutes, "reminder", event.DefaultMeetingReminder, "Reminder in minutes before start")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}
