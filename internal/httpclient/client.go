package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/calplanner/internal/instrumentation"
	"github.com/cyp0633/calplanner/internal/xml"
)

// HttpClientWrapper wraps http.Client with CalDAV-specific functionality
type HttpClientWrapper interface {
	DoPROPFIND(ctx context.Context, url string, depth int, body *etree.Document) (*xml.MultistatusResponse, error)
	DoPROPPATCH(ctx context.Context, url string, body *etree.Document) (*xml.MultistatusResponse, error)
	DoREPORT(ctx context.Context, url string, depth int, body *etree.Document) (*xml.MultistatusResponse, error)
	DoMKCALENDAR(ctx context.Context, url string, body *etree.Document) error
	DoGET(ctx context.Context, url string) (data []byte, etag string, err error)
	DoPUT(ctx context.Context, url string, data []byte, cond Precondition) (etag string, status int, err error)
	DoDELETE(ctx context.Context, url string, etag string) (status int, err error)
}

// Precondition selects the conditional headers sent with a PUT.
type Precondition struct {
	// IfMatch requires the stored resource to carry this etag.
	IfMatch string
	// IfNoneMatchAny sends If-None-Match: * so the PUT only creates.
	IfNoneMatchAny bool
}

// Option configures the wrapper.
type Option func(*httpClientWrapper)

// WithInstruments attaches tracing and metrics to every request.
func WithInstruments(inst *instrumentation.Instruments) Option {
	return func(c *httpClientWrapper) { c.inst = inst }
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
	inst    *instrumentation.Instruments
}

// NewHttpClientWrapper creates a new client wrapper. Authentication is the
// job of client's transport, see BasicAuthTransport.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger, opts ...Option) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	c := &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do sends one request and reads the whole body. Any status outside
// accepted becomes a *StatusError.
func (c *httpClientWrapper) do(ctx context.Context, method, urlStr string, header http.Header, body []byte, accepted ...int) (*response, error) {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, fmt.Errorf("failed to resolve URL %q: %w", urlStr, err)
	}
	c.logger.Debug("resolved URL", "url", resolvedURL.String())

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	ctx, span := c.inst.StartRequest(ctx, method, resolvedURL.Path)
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), reader)
	if err != nil {
		c.inst.EndRequest(ctx, span, method, 0, err, time.Since(started))
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "error", err)
		c.inst.EndRequest(ctx, span, method, 0, err, time.Since(started))
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.inst.EndRequest(ctx, span, method, resp.StatusCode, err, time.Since(started))
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}
	c.logger.Debug("received response", "method", method, "status", resp.Status)

	for _, code := range accepted {
		if resp.StatusCode == code {
			c.inst.EndRequest(ctx, span, method, resp.StatusCode, nil, time.Since(started))
			return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
		}
	}

	statusErr := &StatusError{Method: method, URL: resolvedURL.String(), StatusCode: resp.StatusCode}
	c.logger.Debug("unexpected status code",
		"status_code", resp.StatusCode,
		"status", resp.Status)
	c.inst.EndRequest(ctx, span, method, resp.StatusCode, statusErr, time.Since(started))
	return nil, statusErr
}

func xmlBody(doc *etree.Document) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request body: %w", err)
	}
	return data, nil
}

func xmlHeader(depth int) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/xml; charset=utf-8")
	if depth >= 0 {
		h.Set("Depth", fmt.Sprintf("%d", depth))
	}
	return h
}
