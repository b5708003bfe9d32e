// Package instrumentation provides OpenTelemetry tracing and metrics for
// CalDAV requests and bulk operations.
//
// A nil *Instruments is valid and records nothing.
package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Name is the instrumentation scope for tracers and meters.
const Name = "github.com/cyp0633/calplanner"

// Metric attribute keys
const (
	attrMethod    = "method"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
)

// Span attribute keys
const (
	SpanAttrMethod   = "dav.method"
	SpanAttrURL      = "dav.url"
	SpanAttrStatus   = "dav.status_code"
	SpanAttrCalendar = "calplanner.calendar"
)

// Result values for bulk item metrics.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
)

// Instruments bundles the tracer and metric instruments.
type Instruments struct {
	tracer trace.Tracer

	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	bulkItemsTotal  metric.Int64Counter
}

// New creates Instruments from explicit providers.
func New(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(Name)
	i := &Instruments{tracer: tp.Tracer(Name)}

	var err error
	i.requestsTotal, err = meter.Int64Counter(
		"calplanner_dav_requests_total",
		metric.WithDescription("Total number of CalDAV requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calplanner_dav_requests_total counter: %w", err)
	}

	i.requestDuration, err = meter.Float64Histogram(
		"calplanner_dav_request_duration_seconds",
		metric.WithDescription("CalDAV request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calplanner_dav_request_duration_seconds histogram: %w", err)
	}

	i.bulkItemsTotal, err = meter.Int64Counter(
		"calplanner_bulk_items_total",
		metric.WithDescription("Total number of events processed by bulk operations"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calplanner_bulk_items_total counter: %w", err)
	}

	return i, nil
}

// Global creates Instruments on the process-wide otel providers. These are
// no-ops unless the host application installed an SDK.
func Global() (*Instruments, error) {
	return New(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// StartRequest opens a client span for one DAV request.
func (i *Instruments) StartRequest(ctx context.Context, method, url string) (context.Context, trace.Span) {
	if i == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return i.tracer.Start(ctx, "dav."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(SpanAttrMethod, method),
			attribute.String(SpanAttrURL, url),
		),
	)
}

// EndRequest records the outcome of a request started with StartRequest
// and ends its span. status is 0 when no response was received.
func (i *Instruments) EndRequest(ctx context.Context, span trace.Span, method string, status int, err error, elapsed time.Duration) {
	if i == nil {
		return
	}
	span.SetAttributes(attribute.Int(SpanAttrStatus, status))
	if err != nil {
		SetSpanError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrStatus, strconv.Itoa(status)),
	)
	i.requestsTotal.Add(ctx, 1, attrs)
	i.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordBulkItem counts one processed bulk item.
func (i *Instruments) RecordBulkItem(ctx context.Context, operation, result string) {
	if i == nil {
		return
	}
	i.bulkItemsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrResult, result),
	))
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
