// Package planner is the single entry point to calendar management: it
// wires the CalDAV client, the search engine, the availability solver and
// the bulk executor over one backend.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/calplanner/availability"
	"github.com/cyp0633/calplanner/bulk"
	"github.com/cyp0633/calplanner/davclient"
	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/config"
	"github.com/cyp0633/calplanner/internal/instrumentation"
	"github.com/cyp0633/calplanner/internal/logging"
	"github.com/cyp0633/calplanner/search"
)

// Backend is the CalDAV surface the planner needs.
type Backend interface {
	ListCalendars(ctx context.Context) ([]davclient.Calendar, error)
	CreateCalendar(ctx context.Context, name, displayName, description, color string) (davclient.Calendar, error)
	UpdateCalendar(ctx context.Context, name string, patch davclient.CalendarPatch) error
	DeleteCalendar(ctx context.Context, name string) error

	ListEvents(ctx context.Context, calendar string, r davclient.TimeRange, limit int) ([]event.Event, error)
	GetEvent(ctx context.Context, calendar, uid string) (*event.Event, error)
	CreateEvent(ctx context.Context, calendar string, ev event.Event) (davclient.WriteResult, error)
	UpdateEvent(ctx context.Context, calendar, uid string, patch event.Patch, etag string) (davclient.WriteResult, error)
	DeleteEvent(ctx context.Context, calendar, uid string) (davclient.DeleteResult, error)
}

// Planner exposes every calendar operation.
type Planner struct {
	backend Backend
	search  *search.Engine
	solver  *availability.Solver
	bulk    *bulk.Executor
	loc     *time.Location
	logger  *slog.Logger
}

type options struct {
	logger     *slog.Logger
	inst       *instrumentation.Instruments
	loc        *time.Location
	solverOpts []availability.Option
}

// Option configures a Planner.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithInstruments records bulk item metrics.
func WithInstruments(inst *instrumentation.Instruments) Option {
	return func(o *options) { o.inst = inst }
}

// WithLocation sets the zone for meetings and availability slots.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// WithAvailabilityOptions passes options through to the solver.
func WithAvailabilityOptions(opts ...availability.Option) Option {
	return func(o *options) { o.solverOpts = append(o.solverOpts, opts...) }
}

// New builds a Planner over backend.
func New(backend Backend, opts ...Option) *Planner {
	o := options{logger: logging.Discard(), loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	engine := search.New(backend, o.logger)
	solverOpts := append([]availability.Option{availability.WithLocation(o.loc)}, o.solverOpts...)
	return &Planner{
		backend: backend,
		search:  engine,
		solver:  availability.New(engine, o.logger, solverOpts...),
		bulk:    bulk.New(engine, backend, o.logger, bulk.WithInstruments(o.inst)),
		loc:     o.loc,
		logger:  o.logger,
	}
}

// FromConfig connects to the server described by cfg. With cfg.Discover
// the calendar home is looked up before the client is built.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger, inst *instrumentation.Instruments) (*Planner, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	home := cfg.CalendarHome
	if home == "" && cfg.Discover {
		home, err = davclient.DiscoverCalendarHome(ctx, cfg.Host, cfg.Username, cfg.Password, davclient.DiscoveryConfig{
			Client: httpClient,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to discover calendar home: %w", err)
		}
		logger.Info("discovered calendar home", "home", home)
	}

	client, err := davclient.New(davclient.Config{
		BaseURL:      cfg.Host,
		Username:     cfg.Username,
		Password:     cfg.Password,
		CalendarHome: home,
		HTTPClient:   httpClient,
		Logger:       logger,
		Instruments:  inst,
	})
	if err != nil {
		return nil, err
	}

	opts := []Option{WithLogger(logger), WithInstruments(inst), WithLocation(loc)}
	if hours, ok := workingHours(cfg.Availability); ok {
		opts = append(opts, WithAvailabilityOptions(hours))
	}
	return New(client, opts...), nil
}

func workingHours(cfg config.AvailabilityConfig) (availability.Option, bool) {
	business, extended := availability.BusinessHours, availability.ExtendedHours
	set := false
	if h := cfg.BusinessHours; h != (config.Hours{}) {
		business = availability.Hours{Start: h.Start, End: h.End}
		set = true
	}
	if h := cfg.ExtendedHours; h != (config.Hours{}) {
		extended = availability.Hours{Start: h.Start, End: h.End}
		set = true
	}
	return availability.WithWorkingHours(business, extended), set
}

// ListCalendars returns the user's calendars.
func (p *Planner) ListCalendars(ctx context.Context) ([]davclient.Calendar, error) {
	return p.backend.ListCalendars(ctx)
}

// CreateCalendar makes a new calendar.
func (p *Planner) CreateCalendar(ctx context.Context, name, displayName, description, color string) (davclient.Calendar, error) {
	return p.backend.CreateCalendar(ctx, name, displayName, description, color)
}

// UpdateCalendar changes calendar properties.
func (p *Planner) UpdateCalendar(ctx context.Context, name string, patch davclient.CalendarPatch) error {
	return p.backend.UpdateCalendar(ctx, name, patch)
}

// DeleteCalendar removes a calendar with all its events.
func (p *Planner) DeleteCalendar(ctx context.Context, name string) error {
	return p.backend.DeleteCalendar(ctx, name)
}

// CreateEvent stores a new event.
func (p *Planner) CreateEvent(ctx context.Context, calendar string, ev event.Event) (davclient.WriteResult, error) {
	return p.backend.CreateEvent(ctx, calendar, ev)
}

// CreateMeeting creates a meeting from a wall-clock date and time. A
// request without a zone uses the planner's location.
func (p *Planner) CreateMeeting(ctx context.Context, calendar string, req event.MeetingRequest) (davclient.WriteResult, error) {
	if req.TimeZone == nil {
		req.TimeZone = p.loc
	}
	ev, err := event.NewMeeting(req)
	if err != nil {
		return davclient.WriteResult{}, err
	}
	return p.backend.CreateEvent(ctx, calendar, ev)
}

// GetEvent fetches one event with its etag.
func (p *Planner) GetEvent(ctx context.Context, calendar, uid string) (*event.Event, error) {
	return p.backend.GetEvent(ctx, calendar, uid)
}

// UpdateEvent applies patch; an empty etag means the current one.
func (p *Planner) UpdateEvent(ctx context.Context, calendar, uid string, patch event.Patch, etag string) (davclient.WriteResult, error) {
	if patch.IsEmpty() {
		return davclient.WriteResult{}, fmt.Errorf("%w: update of %q has no fields", event.ErrInvalid, uid)
	}
	return p.backend.UpdateEvent(ctx, calendar, uid, patch, etag)
}

// DeleteEvent removes an event; a missing one is reported in the result.
func (p *Planner) DeleteEvent(ctx context.Context, calendar, uid string) (davclient.DeleteResult, error) {
	return p.backend.DeleteEvent(ctx, calendar, uid)
}

// ListEvents lists one calendar.
func (p *Planner) ListEvents(ctx context.Context, calendar string, r davclient.TimeRange, limit int) ([]event.Event, error) {
	return p.backend.ListEvents(ctx, calendar, r, limit)
}

// SearchEvents searches one or all calendars.
func (p *Planner) SearchEvents(ctx context.Context, q search.Query) ([]event.Event, error) {
	return p.search.Search(ctx, q)
}

// UpcomingEvents lists events in the next days, earliest first.
func (p *Planner) UpcomingEvents(ctx context.Context, calendar string, days, limit int) ([]event.Event, error) {
	return p.search.Upcoming(ctx, calendar, days, limit)
}

// FindAvailability proposes free slots.
func (p *Planner) FindAvailability(ctx context.Context, req availability.Request) ([]availability.Slot, error) {
	return p.solver.Find(ctx, req)
}

// BulkOperate runs a bulk update, delete or move.
func (p *Planner) BulkOperate(ctx context.Context, req bulk.Request) (*bulk.Result, error) {
	return p.bulk.Run(ctx, req)
}
