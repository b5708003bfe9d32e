package main

import (
	"github.com/cyp0633/calplanner/search"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		calendar string
		rng      rangeFlags
		filters  filterFlags
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search events across calendars",
		Long: `Search events in one calendar, or in all of them when --calendar is not
set. A calendar that cannot be read is logged and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			tr, err := rng.timeRange(a.loc)
			if err != nil {
				return err
			}
			events, err := p.SearchEvents(cmd.Context(), search.Query{
				Calendar: calendar,
				Range:    tr,
				Filters:  filters.filters(cmd.Flags()),
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&calendar, "calendar", "", "Only search this calendar")
	fs.IntVar(&limit, "limit", 0, "Maximum events per calendar (0 for no limit)")
	rng.bind(fs)
	filters.bind(fs)
	return cmd
}

func newUpcomingCmd(a *app) *cobra.Command {
	var (
		calendar string
		days     int
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List the next events, earliest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			events, err := p.UpcomingEvents(cmd.Context(), calendar, days, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().StringVar(&calendar, "calendar", "", "Only this calendar")
	cmd.Flags().IntVar(&days, "days", search.DefaultUpcomingDays, "How many days ahead to look")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events (0 for no limit)")
	return cmd
}
