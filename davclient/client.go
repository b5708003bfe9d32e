// Package davclient talks CalDAV to a calendar server: calendar collections
// under one calendar home, and the events inside them.
package davclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cyp0633/calplanner/internal/httpclient"
	"github.com/cyp0633/calplanner/internal/instrumentation"
)

var (
	// ErrNotFound is returned when a calendar or event does not exist.
	ErrNotFound = errors.New("davclient: resource not found")
	// ErrConflict is returned when an update carries a stale etag.
	ErrConflict = errors.New("davclient: etag mismatch")
	// ErrAlreadyExists is returned when creating a resource that exists.
	ErrAlreadyExists = errors.New("davclient: resource already exists")
)

// StatusError carries the method, URL and status of a failed request.
type StatusError = httpclient.StatusError

const (
	// DefaultColor is reported for calendars without a calendar-color.
	DefaultColor = "#1976D2"

	defaultTimeout = 30 * time.Second
)

// Calendar is a calendar collection in the user's calendar home.
type Calendar struct {
	Name        string
	DisplayName string
	Description string
	Color       string
	Href        string
	CTag        string
}

// TimeRange bounds an event listing. Zero bounds are open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// WriteResult describes a stored event.
type WriteResult struct {
	UID        string
	Href       string
	ETag       string
	StatusCode int
}

// DeleteResult describes a delete. Found is false when the event was
// already gone.
type DeleteResult struct {
	StatusCode int
	Found      bool
}

// Config holds what New needs to reach the server.
type Config struct {
	// BaseURL is the server root, e.g. https://cloud.example.com.
	BaseURL  string
	Username string
	Password string
	// CalendarHome defaults to the Nextcloud layout
	// /remote.php/dav/calendars/<username>/.
	CalendarHome string
	// HTTPClient is cloned; its transport is wrapped with Basic Auth.
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Instruments *instrumentation.Instruments
}

// Client performs calendar and event operations against one calendar home.
type Client struct {
	http   httpclient.HttpClientWrapper
	home   string
	logger *slog.Logger
	now    func() time.Time
}

// New builds a Client authenticating with Basic Auth.
func New(cfg Config) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil || baseURL.Host == "" || (baseURL.Scheme != "http" && baseURL.Scheme != "https") {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &http.Client{Timeout: defaultTimeout}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		client = &c
	}
	client.Transport = httpclient.NewBasicAuthTransport(cfg.Username, cfg.Password, client.Transport, logger)

	wrapper, err := httpclient.NewHttpClientWrapper(client, *baseURL, logger, httpclient.WithInstruments(cfg.Instruments))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client wrapper: %w", err)
	}

	home := cfg.CalendarHome
	if home == "" {
		home = DefaultCalendarHome(cfg.Username)
	}
	return NewWithHTTPClient(wrapper, home, logger), nil
}

// NewWithHTTPClient builds a Client over an existing wrapper.
func NewWithHTTPClient(httpClient httpclient.HttpClientWrapper, calendarHome string, logger *slog.Logger) *Client {
	if !strings.HasSuffix(calendarHome, "/") {
		calendarHome += "/"
	}
	return &Client{
		http:   httpClient,
		home:   calendarHome,
		logger: logger,
		now:    time.Now,
	}
}

// DefaultCalendarHome is the Nextcloud calendar home of username.
func DefaultCalendarHome(username string) string {
	return "/remote.php/dav/calendars/" + url.PathEscape(username) + "/"
}

// CalendarHome returns the collection that holds the user's calendars.
func (c *Client) CalendarHome() string {
	return c.home
}

func (c *Client) calendarPath(name string) string {
	return c.home + url.PathEscape(name) + "/"
}

func (c *Client) eventPath(calendar, uid string) string {
	return c.calendarPath(calendar) + url.PathEscape(uid) + ".ics"
}

// lastSegment returns the unescaped final path segment of href.
func lastSegment(href string) string {
	if u, err := url.Parse(href); err == nil {
		href = u.Path
	}
	seg := path.Base(strings.TrimSuffix(href, "/"))
	if unescaped, err := url.PathUnescape(seg); err == nil {
		return unescaped
	}
	return seg
}

// classify adds the matching sentinel to a transport error. on412 is the
// sentinel for a failed precondition, which depends on the operation.
func classify(err error, on412 error) error {
	switch {
	case httpclient.IsNotFound(err):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case on412 != nil && httpclient.IsPreconditionFailed(err):
		return fmt.Errorf("%w: %w", on412, err)
	}
	return err
}
