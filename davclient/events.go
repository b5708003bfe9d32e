package davclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/httpclient"
	"github.com/cyp0633/calplanner/internal/xml"
	"github.com/google/uuid"
)

// GetEvent fetches one event and its current etag. Undecodable data is an
// error here, unlike in ListEvents.
func (c *Client) GetEvent(ctx context.Context, calendar, uid string) (*event.Event, error) {
	href := c.eventPath(calendar, uid)
	data, etag, err := c.http.DoGET(ctx, href)
	if err != nil {
		return nil, fmt.Errorf("failed to get event %q: %w", uid, classify(err, nil))
	}

	ev, err := event.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode event %q: %w", uid, err)
	}
	if ev.UID == "" {
		ev.UID = uid
	}
	ev.Href = href
	ev.ETag = etag
	ev.CalendarName = calendar
	return ev, nil
}

// CreateEvent stores ev as a new resource. An empty UID is replaced with a
// fresh one; an existing resource with the same UID yields
// ErrAlreadyExists.
func (c *Client) CreateEvent(ctx context.Context, calendar string, ev event.Event) (WriteResult, error) {
	if err := event.ValidateRecurrence(ev.RecurrenceRule); err != nil {
		return WriteResult{}, err
	}
	if ev.UID == "" {
		ev.UID = uuid.New().String()
	}

	data, err := event.Encode(ev, c.now())
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to encode calendar object: %w", err)
	}

	href := c.eventPath(calendar, ev.UID)
	etag, status, err := c.http.DoPUT(ctx, href, data, httpclient.Precondition{IfNoneMatchAny: true})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to create event in %q: %w", calendar, classify(err, ErrAlreadyExists))
	}
	if etag == "" {
		etag = c.fetchETag(ctx, href)
	}

	c.logger.Info("created event", "calendar", calendar, "uid", ev.UID)
	return WriteResult{UID: ev.UID, Href: href, ETag: etag, StatusCode: status}, nil
}

// UpdateEvent applies patch to the stored event. The current resource is
// always fetched so that unpatched fields survive; the write is
// conditional on etag, or on the fetched etag when etag is empty.
// A stale etag yields ErrConflict and nothing is retried.
func (c *Client) UpdateEvent(ctx context.Context, calendar, uid string, patch event.Patch, etag string) (WriteResult, error) {
	if rule, ok := patch.RecurrenceRule.Get(); ok {
		if err := event.ValidateRecurrence(rule); err != nil {
			return WriteResult{}, err
		}
	}

	current, err := c.GetEvent(ctx, calendar, uid)
	if err != nil {
		return WriteResult{}, err
	}

	ifMatch := etag
	if ifMatch == "" {
		ifMatch = current.ETag
	}
	if ifMatch == "" {
		ifMatch = c.fetchETag(ctx, current.Href)
	}

	data, err := event.Encode(event.Merge(*current, patch), c.now())
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to encode calendar object: %w", err)
	}

	newEtag, status, err := c.http.DoPUT(ctx, current.Href, data, httpclient.Precondition{IfMatch: ifMatch})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to update event %q: %w", uid, classify(err, ErrConflict))
	}
	if newEtag == "" {
		newEtag = c.fetchETag(ctx, current.Href)
	}

	c.logger.Info("updated event", "calendar", calendar, "uid", uid)
	return WriteResult{UID: uid, Href: current.Href, ETag: newEtag, StatusCode: status}, nil
}

// DeleteEvent removes an event unconditionally. A missing event is not an
// error: the result reports Found=false with status 404.
func (c *Client) DeleteEvent(ctx context.Context, calendar, uid string) (DeleteResult, error) {
	status, err := c.http.DoDELETE(ctx, c.eventPath(calendar, uid), "")
	if httpclient.IsNotFound(err) {
		c.logger.Debug("event already gone", "calendar", calendar, "uid", uid)
		return DeleteResult{StatusCode: http.StatusNotFound, Found: false}, nil
	}
	if err != nil {
		return DeleteResult{}, fmt.Errorf("failed to delete event %q: %w", uid, err)
	}

	c.logger.Info("deleted event", "calendar", calendar, "uid", uid)
	return DeleteResult{StatusCode: status, Found: true}, nil
}

// fetchETag asks for getetag when a write response carried none. Failure
// leaves the etag empty; the write itself already succeeded.
func (c *Client) fetchETag(ctx context.Context, href string) string {
	ms, err := c.http.DoPROPFIND(ctx, href, 0, xml.NewPropfind(xml.PropGetETag))
	if err != nil {
		c.logger.Warn("failed to get new etag", "href", href, "error", err)
		return ""
	}
	for _, resp := range ms.Responses {
		if p, ok := resp.Prop(xml.PropGetETag); ok {
			return p.TextContent
		}
	}
	c.logger.Warn("no etag found for object", "href", href)
	return ""
}
