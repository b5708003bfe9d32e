package httpclient

import (
	"context"
	"net/http"
)

// DoDELETE sends a DELETE request, with If-Match when etag is set.
func (c *httpClientWrapper) DoDELETE(ctx context.Context, urlStr string, etag string) (int, error) {
	c.logger.Debug("starting DELETE request",
		"url", urlStr,
		"etag", etag)

	header := http.Header{}
	if etag != "" {
		header.Set("If-Match", etag)
	}

	resp, err := c.do(ctx, http.MethodDelete, urlStr, header, nil,
		http.StatusNoContent, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return 0, err
	}

	c.logger.Debug("DELETE request complete", "status", resp.status)
	return resp.status, nil
}
