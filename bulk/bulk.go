// Package bulk applies one operation to every event matching a search.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cyp0633/calplanner/davclient"
	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/instrumentation"
	"github.com/cyp0633/calplanner/internal/logging"
	"github.com/cyp0633/calplanner/search"
	"github.com/samber/mo"
)

// Operation names a bulk action.
type Operation string

const (
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpMove   Operation = "move"
)

// Item outcomes.
const (
	StatusUpdated = "updated"
	StatusDeleted = "deleted"
	StatusMoved   = "moved"
	StatusFailed  = "failed"
)

// ErrInvalidRequest is returned before any I/O for a malformed request.
var ErrInvalidRequest = errors.New("bulk: invalid request")

// Searcher resolves the events an operation applies to.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]event.Event, error)
}

// Mutator writes events.
type Mutator interface {
	CreateEvent(ctx context.Context, calendar string, ev event.Event) (davclient.WriteResult, error)
	UpdateEvent(ctx context.Context, calendar, uid string, patch event.Patch, etag string) (davclient.WriteResult, error)
	DeleteEvent(ctx context.Context, calendar, uid string) (davclient.DeleteResult, error)
}

// Criteria selects events the same way a search does.
type Criteria struct {
	// Calendar restricts the operation to one calendar; empty means all.
	Calendar string
	Range    davclient.TimeRange
	Filters  search.Filters
}

// Request describes a bulk operation. Patch is used by update and
// TargetCalendar by move.
type Request struct {
	Operation      Operation
	Criteria       Criteria
	Patch          event.Patch
	TargetCalendar string
}

// ItemResult is the outcome for one event.
type ItemResult struct {
	UID          string
	Title        string
	Status       string
	Error        string
	FromCalendar string
	ToCalendar   string
}

// Result aggregates a bulk run. Failed items do not fail the run; check
// Items for which ones went wrong.
type Result struct {
	Operation      Operation
	TotalFound     int
	Succeeded      int
	Failed         int
	Items          []ItemResult
	TargetCalendar string
}

// Executor runs bulk operations.
type Executor struct {
	searcher Searcher
	mutator  Mutator
	logger   *slog.Logger
	inst     *instrumentation.Instruments
}

// Option configures an Executor.
type Option func(*Executor)

// WithInstruments counts processed items.
func WithInstruments(inst *instrumentation.Instruments) Option {
	return func(e *Executor) { e.inst = inst }
}

// New returns an Executor.
func New(searcher Searcher, mutator Mutator, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = logging.Discard()
	}
	e := &Executor{searcher: searcher, mutator: mutator, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate checks a request without touching the server.
func (r Request) Validate() error {
	switch r.Operation {
	case OpUpdate:
		if r.Patch.IsEmpty() {
			return fmt.Errorf("%w: update needs at least one field", ErrInvalidRequest)
		}
		if rule, ok := r.Patch.RecurrenceRule.Get(); ok {
			if err := event.ValidateRecurrence(rule); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
			}
		}
	case OpDelete:
	case OpMove:
		if r.TargetCalendar == "" {
			return fmt.Errorf("%w: move needs a target calendar", ErrInvalidRequest)
		}
		if r.TargetCalendar == r.Criteria.Calendar {
			return fmt.Errorf("%w: move source and target are both %q", ErrInvalidRequest, r.TargetCalendar)
		}
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidRequest, r.Operation)
	}
	return nil
}

// Run resolves the matching events and applies the operation to each one
// in turn. A failing item is recorded and processing continues; Run only
// returns an error for an invalid request or when the events cannot be
// resolved.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger := logging.WithOperation(e.logger, "bulk_"+string(req.Operation))

	events, err := e.searcher.Search(ctx, search.Query{
		Calendar: req.Criteria.Calendar,
		Range:    req.Criteria.Range,
		Filters:  req.Criteria.Filters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve events for bulk %s: %w", req.Operation, err)
	}

	res := &Result{
		Operation:      req.Operation,
		TotalFound:     len(events),
		Items:          make([]ItemResult, 0, len(events)),
		TargetCalendar: req.TargetCalendar,
	}

	for _, ev := range events {
		item := ItemResult{UID: ev.UID, Title: ev.Title, FromCalendar: ev.CalendarName}
		if req.Operation == OpMove {
			item.ToCalendar = req.TargetCalendar
		}

		outcome := e.apply(ctx, req, ev)
		status, err := outcome.Get()
		if err != nil {
			item.Status = StatusFailed
			item.Error = err.Error()
			res.Failed++
			logger.Warn("bulk item failed", logging.Calendar(ev.CalendarName), logging.UID(ev.UID), logging.Err(err))
			e.inst.RecordBulkItem(ctx, string(req.Operation), instrumentation.ResultFailed)
		} else {
			item.Status = status
			res.Succeeded++
			e.inst.RecordBulkItem(ctx, string(req.Operation), instrumentation.ResultSucceeded)
		}
		res.Items = append(res.Items, item)
	}

	logger.Info("bulk operation finished",
		"total", res.TotalFound,
		"succeeded", res.Succeeded,
		"failed", res.Failed)
	return res, nil
}

func (e *Executor) apply(ctx context.Context, req Request, ev event.Event) mo.Result[string] {
	switch req.Operation {
	case OpUpdate:
		return e.update(ctx, req.Patch, ev)
	case OpDelete:
		return e.delete(ctx, ev)
	default:
		return e.move(ctx, req.TargetCalendar, ev)
	}
}

func (e *Executor) update(ctx context.Context, patch event.Patch, ev event.Event) mo.Result[string] {
	if _, err := e.mutator.UpdateEvent(ctx, ev.CalendarName, ev.UID, patch, ev.ETag); err != nil {
		return mo.Err[string](err)
	}
	return mo.Ok(StatusUpdated)
}

func (e *Executor) delete(ctx context.Context, ev event.Event) mo.Result[string] {
	res, err := e.mutator.DeleteEvent(ctx, ev.CalendarName, ev.UID)
	if err != nil {
		return mo.Err[string](err)
	}
	if !res.Found {
		return mo.Err[string](errors.New("event no longer exists"))
	}
	return mo.Ok(StatusDeleted)
}

func (e *Executor) move(ctx context.Context, target string, ev event.Event) mo.Result[string] {
	if ev.CalendarName == target {
		return mo.Err[string](fmt.Errorf("event is already in %q", target))
	}
	created, err := e.mutator.CreateEvent(ctx, target, ev.WithoutIdentity())
	if err != nil {
		return mo.Err[string](fmt.Errorf("failed to copy to %q: %w", target, err))
	}
	if _, err := e.mutator.DeleteEvent(ctx, ev.CalendarName, ev.UID); err != nil {
		return mo.Err[string](fmt.Errorf("copied to %q as %s but failed to delete original: %w", target, created.UID, err))
	}
	return mo.Ok(StatusMoved)
}
