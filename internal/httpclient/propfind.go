package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/beevik/etree"
	"github.com/cyp0633/calplanner/internal/xml"
)

const (
	methodPROPFIND  = "PROPFIND"
	methodPROPPATCH = "PROPPATCH"
)

// DoPROPFIND performs a PROPFIND request and parses the multistatus reply.
func (c *httpClientWrapper) DoPROPFIND(ctx context.Context, urlStr string, depth int, body *etree.Document) (*xml.MultistatusResponse, error) {
	c.logger.Debug("starting PROPFIND request",
		"url", urlStr,
		"depth", depth)

	data, err := xmlBody(body)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, methodPROPFIND, urlStr, xmlHeader(depth), data, http.StatusMultiStatus)
	if err != nil {
		return nil, err
	}

	ms, err := xml.ParseMultistatus(resp.body)
	if err != nil {
		c.logger.Debug("failed to parse XML response", "error", err)
		return nil, fmt.Errorf("failed to parse PROPFIND response: %w", err)
	}

	c.logger.Debug("PROPFIND request complete",
		"response_count", len(ms.Responses))
	return ms, nil
}

// DoPROPPATCH sets properties on a resource. The caller inspects the
// returned propstats for per-property failures.
func (c *httpClientWrapper) DoPROPPATCH(ctx context.Context, urlStr string, body *etree.Document) (*xml.MultistatusResponse, error) {
	c.logger.Debug("starting PROPPATCH request", "url", urlStr)

	data, err := xmlBody(body)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, methodPROPPATCH, urlStr, xmlHeader(-1), data, http.StatusMultiStatus, http.StatusOK)
	if err != nil {
		return nil, err
	}

	ms := &xml.MultistatusResponse{}
	if len(resp.body) > 0 {
		ms, err = xml.ParseMultistatus(resp.body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PROPPATCH response: %w", err)
		}
	}

	c.logger.Debug("PROPPATCH request complete", "status", resp.status)
	return ms, nil
}
