package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/beevik/etree"
	"github.com/cyp0633/calplanner/internal/xml"
)

const methodREPORT = "REPORT"

// DoREPORT executes a CalDAV REPORT request
func (c *httpClientWrapper) DoREPORT(ctx context.Context, urlStr string, depth int, body *etree.Document) (*xml.MultistatusResponse, error) {
	c.logger.Debug("starting REPORT request",
		"url", urlStr,
		"depth", depth)

	data, err := xmlBody(body)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, methodREPORT, urlStr, xmlHeader(depth), data, http.StatusMultiStatus, http.StatusOK)
	if err != nil {
		return nil, err
	}

	ms, err := xml.ParseMultistatus(resp.body)
	if err != nil {
		c.logger.Debug("failed to decode response", "error", err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("REPORT request complete",
		"response_count", len(ms.Responses))
	return ms, nil
}
