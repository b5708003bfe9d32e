package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for any response whose status the request did
// not expect.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code: %d", e.Method, e.URL, e.StatusCode)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsPreconditionFailed reports a 412 response.
func IsPreconditionFailed(err error) bool {
	return IsStatus(err, http.StatusPreconditionFailed)
}
