package main

import (
	"fmt"
	"strings"

	"github.com/cyp0633/calplanner/bulk"
	"github.com/spf13/cobra"
)

func newBulkCmd(a *app) *cobra.Command {
	var (
		calendar string
		target   string
		rng      rangeFlags
		filters  filterFlags
		set      = eventFlags{prefix: "set-"}
	)
	cmd := &cobra.Command{
		Use:   "bulk update|delete|move",
		Short: "Apply one operation to every matching event",
		Long: `Select events like search does, then update, delete or move each one.
Updates take their new values from the --set-* flags; move needs --target.
A failure on one event does not stop the others; the result lists each.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(bulk.OpUpdate), string(bulk.OpDelete), string(bulk.OpMove)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			req := bulk.Request{
				Operation: bulk.Operation(strings.ToLower(args[0])),
				Criteria: bulk.Criteria{
					Calendar: calendar,
					Filters:  filters.filters(cmd.Flags()),
				},
				TargetCalendar: target,
			}
			var err error
			if req.Criteria.Range, err = rng.timeRange(a.loc); err != nil {
				return err
			}
			if req.Patch, err = set.patch(cmd.Flags(), a.loc); err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}

			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			res, err := p.BulkOperate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d events failed", res.Failed, res.TotalFound)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&calendar, "calendar", "", "Only events in this calendar")
	fs.StringVar(&target, "target", "", "Destination calendar for move")
	rng.bind(fs)
	filters.bind(fs)
	set.bind(fs)
	return cmd
}
