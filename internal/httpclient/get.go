package httpclient

import (
	"context"
	"net/http"
)

// DoGET fetches a calendar object and its current etag.
func (c *httpClientWrapper) DoGET(ctx context.Context, urlStr string) ([]byte, string, error) {
	c.logger.Debug("starting GET request", "url", urlStr)

	header := http.Header{}
	header.Set("Accept", "text/calendar")

	resp, err := c.do(ctx, http.MethodGet, urlStr, header, nil, http.StatusOK)
	if err != nil {
		return nil, "", err
	}

	etag := resp.header.Get("ETag")
	c.logger.Debug("GET request complete",
		"etag", etag,
		"data_length", len(resp.body))
	return resp.body, etag, nil
}
