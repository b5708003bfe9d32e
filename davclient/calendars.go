package davclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/cyp0633/calplanner/internal/httpclient"
	"github.com/cyp0633/calplanner/internal/xml"
	"github.com/samber/mo"
)

// CalendarPatch changes calendar properties; absent fields are left alone.
type CalendarPatch struct {
	DisplayName mo.Option[string]
	Description mo.Option[string]
	Color       mo.Option[string]
}

func (p CalendarPatch) props() []xml.PropValue {
	var props []xml.PropValue
	if v, ok := p.DisplayName.Get(); ok {
		props = append(props, xml.PropValue{Name: xml.PropDisplayName, Value: v})
	}
	if v, ok := p.Description.Get(); ok {
		props = append(props, xml.PropValue{Name: xml.PropCalendarDescription, Value: v})
	}
	if v, ok := p.Color.Get(); ok {
		props = append(props, xml.PropValue{Name: xml.PropCalendarColor, Value: v})
	}
	return props
}

// ListCalendars returns every calendar collection in the calendar home,
// sorted by name.
func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	ms, err := c.http.DoPROPFIND(ctx, c.home, 1, xml.NewPropfind(
		xml.PropResourceType,
		xml.PropDisplayName,
		xml.PropCalendarDescription,
		xml.PropCalendarColor,
		xml.PropGetCTag,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", classify(err, nil))
	}

	homePath := strings.TrimSuffix(hrefPath(c.home), "/")

	var calendars []Calendar
	for _, resp := range ms.Responses {
		if strings.TrimSuffix(hrefPath(resp.Href), "/") == homePath {
			continue
		}
		rt, ok := resp.Prop(xml.PropResourceType)
		if !ok || !rt.HasChild(xml.Name{Space: xml.CalDAV, Local: "calendar"}) {
			continue
		}

		cal := Calendar{
			Name:  lastSegment(resp.Href),
			Href:  resp.Href,
			Color: DefaultColor,
		}
		cal.DisplayName = cal.Name
		if p, ok := resp.Prop(xml.PropDisplayName); ok && p.TextContent != "" {
			cal.DisplayName = p.TextContent
		}
		if p, ok := resp.Prop(xml.PropCalendarDescription); ok {
			cal.Description = p.TextContent
		}
		if p, ok := resp.Prop(xml.PropCalendarColor); ok && p.TextContent != "" {
			cal.Color = p.TextContent
		}
		if p, ok := resp.Prop(xml.PropGetCTag); ok {
			cal.CTag = p.TextContent
		}
		calendars = append(calendars, cal)
	}

	sort.Slice(calendars, func(i, j int) bool { return calendars[i].Name < calendars[j].Name })

	c.logger.Debug("listed calendars", "count", len(calendars))
	return calendars, nil
}

// CreateCalendar makes a new VEVENT calendar. An empty displayName falls
// back to name and an empty color to DefaultColor.
func (c *Client) CreateCalendar(ctx context.Context, name, displayName, description, color string) (Calendar, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return Calendar{}, fmt.Errorf("invalid calendar name %q", name)
	}
	if displayName == "" {
		displayName = name
	}
	if color == "" {
		color = DefaultColor
	}

	props := []xml.PropValue{
		{Name: xml.PropDisplayName, Value: displayName},
		{Name: xml.PropCalendarColor, Value: color},
	}
	if description != "" {
		props = append(props, xml.PropValue{Name: xml.PropCalendarDescription, Value: description})
	}

	href := c.calendarPath(name)
	if err := c.http.DoMKCALENDAR(ctx, href, xml.NewMkcalendar(props...)); err != nil {
		if httpclient.IsStatus(err, http.StatusMethodNotAllowed) {
			err = fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		}
		return Calendar{}, fmt.Errorf("failed to create calendar %q: %w", name, err)
	}

	c.logger.Info("created calendar", "calendar", name)
	return Calendar{
		Name:        name,
		DisplayName: displayName,
		Description: description,
		Color:       color,
		Href:        href,
	}, nil
}

// UpdateCalendar sets calendar properties with PROPPATCH.
func (c *Client) UpdateCalendar(ctx context.Context, name string, patch CalendarPatch) error {
	props := patch.props()
	if len(props) == 0 {
		return fmt.Errorf("calendar update for %q has no fields", name)
	}

	ms, err := c.http.DoPROPPATCH(ctx, c.calendarPath(name), xml.NewPropertyUpdate(props...))
	if err != nil {
		return fmt.Errorf("failed to update calendar %q: %w", name, classify(err, nil))
	}

	for _, resp := range ms.Responses {
		if failed := resp.Failed(); len(failed) > 0 {
			return fmt.Errorf("failed to update calendar %q: properties rejected: %v", name, failed)
		}
	}

	c.logger.Info("updated calendar", "calendar", name, "properties", len(props))
	return nil
}

// DeleteCalendar removes a calendar and everything in it.
func (c *Client) DeleteCalendar(ctx context.Context, name string) error {
	if _, err := c.http.DoDELETE(ctx, c.calendarPath(name), ""); err != nil {
		return fmt.Errorf("failed to delete calendar %q: %w", name, classify(err, nil))
	}
	c.logger.Info("deleted calendar", "calendar", name)
	return nil
}

func hrefPath(href string) string {
	if u, err := url.Parse(href); err == nil {
		return u.Path
	}
	return href
}
