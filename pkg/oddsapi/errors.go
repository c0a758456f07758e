package oddsapi

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned before any request when no API key is available.
var ErrMissingCredential = errors.New("oddsapi: api key is required")

// StatusError reports a response with any status other than 200.
// Client and server errors are not distinguished.
type StatusError struct {
	Operation  Operation
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status_code %d, response body %s", e.Operation, e.StatusCode, e.Body)
}

// TransportError wraps a failure that produced no HTTP response at all
// (DNS, refused connection, timeout, cancelled context).
type TransportError struct {
	Operation Operation
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
