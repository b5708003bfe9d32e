package httpclient

import (
	"context"
	"net/http"
)

// DoPUT stores a calendar object under the given precondition and returns
// the new etag, which is empty when the server did not send one, together
// with the response status.
func (c *httpClientWrapper) DoPUT(ctx context.Context, urlStr string, data []byte, cond Precondition) (string, int, error) {
	c.logger.Debug("starting PUT request",
		"url", urlStr,
		"if_match", cond.IfMatch,
		"if_none_match", cond.IfNoneMatchAny,
		"data_length", len(data))

	header := http.Header{}
	header.Set("Content-Type", "text/calendar; charset=utf-8")
	if cond.IfMatch != "" {
		header.Set("If-Match", cond.IfMatch)
	}
	if cond.IfNoneMatchAny {
		header.Set("If-None-Match", "*")
	}

	resp, err := c.do(ctx, http.MethodPut, urlStr, header, data,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return "", 0, err
	}

	newEtag := resp.header.Get("ETag")
	c.logger.Debug("PUT request complete",
		"status", resp.status,
		"new_etag", newEtag)
	return newEtag, resp.status, nil
}
