package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the single failure type surfaced by the request executor.
//
// StatusCode is 0 only when the request never reached the backend (DNS,
// connection, cancelled context, unusable URL). Otherwise it is the status the
// backend answered with. Detail and Fields come from the backend's problem
// document when it sent one.
type APIError struct {
	Message    string
	StatusCode int
	Detail     string

	// Fields holds per-field validation messages ("errors" in the problem document).
	Fields map[string]string

	// Err is the underlying cause for transport failures.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Detail != "" && e.Detail != msg {
		return fmt.Sprintf("api %d: %s: %s", e.StatusCode, msg, e.Detail)
	}
	return fmt.Sprintf("api %d: %s", e.StatusCode, msg)
}

// Unwrap returns the wrapped cause for errors.Is/As support.
func (e *APIError) Unwrap() error { return e.Err }

// UserMessage is what pages display: the backend detail when present,
// the message otherwise.
func (e *APIError) UserMessage() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return e.Detail
	}
	if e.Message != "" {
		return e.Message
	}
	return "An unknown error occurred"
}

// IsTransport reports whether the request never reached the backend.
func (e *APIError) IsTransport() bool {
	return e != nil && e.StatusCode == 0
}

// FieldError returns the backend's validation message for a form field.
func (e *APIError) FieldError(field string) string {
	if e == nil || e.Fields == nil {
		return ""
	}
	return e.Fields[field]
}

// NewTransportError builds the status-0 error for a request that never got
// an answer.
func NewTransportError(err error) *APIError {
	msg := "Unknown error occurred"
	if err != nil {
		msg = err.Error()
	}
	return &APIError{Message: msg, StatusCode: 0, Err: err}
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// FromError normalises any error into an *APIError. Errors that did not come
// from the executor are unexpected failures and get status 500.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr
	}
	msg := err.Error()
	if msg == "" {
		msg = "Unknown error"
	}
	return &APIError{Message: msg, StatusCode: http.StatusInternalServerError, Err: err}
}

// IsStatus reports whether err is an APIError carrying the given status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == status
}

// IsUnauthorized reports a missing or expired session.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports a 404 from the backend.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}
