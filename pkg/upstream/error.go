// Package upstream carries transport failures from the external services so
// callers can map them to retry decisions and response codes.
package upstream

import (
	"errors"
	"fmt"
)

// Error wraps a failed call to one of the external services.
type Error struct {
	// Service names the boundary: "directory", "ledger" or "identity".
	Service string
	// Status is the HTTP status of the upstream response, 0 when the
	// request never completed (connect failure, timeout).
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s upstream returned status %d: %v", e.Service, e.Status, e.Err)
	}
	return fmt.Sprintf("%s upstream unreachable: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an upstream error for a service boundary.
func New(service string, status int, err error) *Error {
	return &Error{Service: service, Status: status, Err: err}
}

// StatusCode extracts the upstream HTTP status from an error chain.
func StatusCode(err error) (int, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Status, true
	}
	return 0, false
}

// Is reports whether err originated at an upstream boundary.
func Is(err error) bool {
	var ue *Error
	return errors.As(err, &ue)
}
