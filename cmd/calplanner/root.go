package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/calplanner/internal/config"
	"github.com/cyp0633/calplanner/internal/instrumentation"
	"github.com/cyp0633/calplanner/internal/logging"
	"github.com/cyp0633/calplanner/planner"
	"github.com/spf13/cobra"
)

// app carries the persistent flags and the state built from them.
type app struct {
	version    string
	configPath string
	logLevel   string
	timezone   string

	cfg       *config.Config
	loc       *time.Location
	logger    *slog.Logger
	telemetry *instrumentation.Provider
}

func newRootCmd(version string) (*cobra.Command, *app) {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "calplanner",
		Short: "Manage CalDAV calendars, events and meeting slots",
		Long: `calplanner talks to a CalDAV server (Nextcloud layout by default) to
manage calendars and events, search across calendars, run bulk updates and
find free meeting slots.

Connection settings come from --config and the NEXTCLOUD_HOST,
NEXTCLOUD_USERNAME and NEXTCLOUD_PASSWORD environment variables.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "calplanner version %s\n" .Version}}`)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	root.PersistentFlags().StringVar(&a.timezone, "timezone", "", "IANA timezone for dates and slots (overrides config)")

	root.AddCommand(
		newCalendarsCmd(a),
		newCalendarCmd(a),
		newEventsCmd(a),
		newEventCmd(a),
		newMeetingCmd(a),
		newSearchCmd(a),
		newUpcomingCmd(a),
		newAvailabilityCmd(a),
		newBulkCmd(a),
	)
	return root, a
}

// load reads the configuration and applies flag overrides. It is safe to
// call more than once.
func (a *app) load(cmd *cobra.Command) error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Read(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.timezone != "" {
		cfg.Timezone = a.timezone
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.loc = cfg, logger, loc
	return nil
}

// planner connects to the configured server.
func (a *app) planner(cmd *cobra.Command) (*planner.Planner, error) {
	if err := a.load(cmd); err != nil {
		return nil, err
	}
	if a.telemetry == nil {
		exporters := a.cfg.Telemetry.Exporters()
		exporters.Writer = cmd.ErrOrStderr()
		exporters.ServiceVersion = a.version
		provider, err := instrumentation.NewProvider(cmd.Context(), exporters)
		if err != nil {
			return nil, fmt.Errorf("failed to set up instrumentation: %w", err)
		}
		a.telemetry = provider
	}
	return planner.FromConfig(cmd.Context(), a.cfg, a.logger, a.telemetry.Instruments())
}

// close flushes telemetry. Call it once the command has finished.
func (a *app) close(ctx context.Context) error {
	if a.telemetry == nil {
		return nil
	}
	return a.telemetry.Shutdown(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
