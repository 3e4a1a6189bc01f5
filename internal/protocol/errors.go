package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrConfiguration    = errors.New("phoenix: configuration error")
	ErrValidation       = errors.New("phoenix: validation error")
	ErrCapacity         = errors.New("phoenix: capacity error")
	ErrSerialization    = errors.New("phoenix: serialization error")
	ErrAuthentication   = errors.New("phoenix: authentication error")
	ErrMalformedRequest = errors.New("phoenix: malformed request")
	ErrNotFound         = errors.New("phoenix: not found")
	ErrService          = errors.New("phoenix: service error")
	ErrTransport        = errors.New("phoenix: transport error")
)

// StatusError is returned for any non-200 response from the service.
type StatusError struct {
	StatusCode int
	Status     string
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "http request failed"
	}
	switch e.StatusCode {
	case http.StatusBadRequest:
		return "bad request: " + e.Body
	case http.StatusUnauthorized:
		if e.Body != "" {
			return "authentication failed: " + e.Body
		}
		return "authentication failed"
	case http.StatusNotFound:
		return fmt.Sprintf("404 not found (%s)", e.Path)
	default:
		return fmt.Sprintf("unknown error (status code %d): %s", e.StatusCode, e.Body)
	}
}

// Unwrap maps the status code onto its error kind so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrMalformedRequest
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrService
	}
}

// TransportError wraps failures below the HTTP status layer: refused
// connections, timeouts, unreadable responses.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return "transport failed"
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{ErrTransport, e.Err}
}

func (e *TransportError) Timeout() bool {
	if e == nil || e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsProgrammerError reports errors caused by bad arguments or configuration,
// as opposed to failures reported by the service or the network.
func IsProgrammerError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrCapacity) ||
		errors.Is(err, ErrSerialization) ||
		errors.Is(err, ErrConfiguration)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrAuthentication)
}
