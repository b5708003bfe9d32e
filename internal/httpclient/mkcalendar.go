package httpclient

import (
	"context"
	"net/http"

	"github.com/beevik/etree"
)

const methodMKCALENDAR = "MKCALENDAR"

// DoMKCALENDAR creates a calendar collection at url.
func (c *httpClientWrapper) DoMKCALENDAR(ctx context.Context, urlStr string, body *etree.Document) error {
	c.logger.Debug("starting MKCALENDAR request", "url", urlStr)

	data, err := xmlBody(body)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, methodMKCALENDAR, urlStr, xmlHeader(-1), data, http.StatusCreated)
	if err != nil {
		return err
	}

	c.logger.Debug("MKCALENDAR request complete", "status", resp.status)
	return nil
}
