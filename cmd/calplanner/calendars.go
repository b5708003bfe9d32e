package main

import (
	"fmt"

	"github.com/cyp0633/calplanner/davclient"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

func newCalendarsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			cals, err := p.ListCalendars(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cals)
		},
	}
}

func newCalendarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Create, update or delete a calendar",
	}

	var displayName, description, color string
	bindProps := func(c *cobra.Command) {
		c.Flags().StringVar(&displayName, "display-name", "", "Display name")
		c.Flags().StringVar(&description, "description", "", "Description")
		c.Flags().StringVar(&color, "color", "", "Color, e.g. #0082c9")
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			cal, err := p.CreateCalendar(cmd.Context(), args[0], displayName, description, color)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cal)
		},
	}
	bindProps(create)

	update := &cobra.Command{
		Use:   "update NAME",
		Short: "Change calendar properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch davclient.CalendarPatch
			fs := cmd.Flags()
			if fs.Changed("display-name") {
				patch.DisplayName = mo.Some(displayName)
			}
			if fs.Changed("description") {
				patch.Description = mo.Some(description)
			}
			if fs.Changed("color") {
				patch.Color = mo.Some(color)
			}
			if !fs.Changed("display-name") && !fs.Changed("description") && !fs.Changed("color") {
				return fmt.Errorf("nothing to update: set --display-name, --description or --color")
			}
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			if err := p.UpdateCalendar(cmd.Context(), args[0], patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated calendar %s\n", args[0])
			return nil
		},
	}
	bindProps(update)

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a calendar and all its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.planner(cmd)
			if err != nil {
				return err
			}
			if err := p.DeleteCalendar(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted calendar %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, update, del)
	return cmd
}
