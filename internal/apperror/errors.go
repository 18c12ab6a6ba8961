// Package apperror holds the error taxonomy surfaced to API clients.
//
// Client errors (validation, conflict, not found, authentication) are
// *Error values that carry their own status and message. Internal failures
// are samber/oops errors tagged with one of the Code* constants and always
// map to 500.
package apperror

import (
	"errors"
	"net/http"

	"github.com/samber/oops"
)

// Codes for internal failures.
const (
	CodeHashing  = "HASHING_FAILED"
	CodeIssuance = "ISSUANCE_FAILED"
	CodeStorage  = "STORAGE_FAILED"
	CodeEvents   = "EVENT_PUBLISH_FAILED"
)

// DefaultMessage is used when a failure carries no message of its own.
const DefaultMessage = "Internal Server Error"

// Error is a failure with a fixed HTTP status and client-facing message.
// Cause, when set, is kept for logging and never shown to the client.
type Error struct {
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Validation reports missing or malformed request fields.
func Validation(msg string) *Error { return &Error{Status: http.StatusBadRequest, Message: msg} }

// Conflict reports a uniqueness violation such as a taken email.
func Conflict(msg string) *Error { return &Error{Status: http.StatusConflict, Message: msg} }

// NotFound reports a user that does not resolve.
func NotFound(msg string) *Error { return &Error{Status: http.StatusNotFound, Message: msg} }

// Authentication reports bad credentials or an invalid session token.
func Authentication(msg string) *Error { return &Error{Status: http.StatusUnauthorized, Message: msg} }

// Internal reports a server-side failure under a fixed message.
func Internal(msg string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Cause: cause}
}

// Hashing wraps a credential hasher failure.
func Hashing(err error) error {
	return oops.Code(CodeHashing).In("credentials").Wrap(err)
}

// Issuance wraps a session token signing failure.
func Issuance(err error) error {
	return oops.Code(CodeIssuance).In("session").Wrap(err)
}

// Storage wraps a user store failure, tagging the operation that failed.
func Storage(op string, err error) error {
	return oops.Code(CodeStorage).In("store").With("operation", op).Wrap(err)
}

// Events wraps an account event publishing failure.
func Events(event string, err error) error {
	return oops.Code(CodeEvents).In("events").With("event", event).Wrap(err)
}

// Status returns the HTTP status for err.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err, falling back to
// DefaultMessage when the error has none.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil || err.Error() == "" {
		return DefaultMessage
	}
	return err.Error()
}

// Code returns the oops code attached to err, or "" for uncoded errors.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	if code, ok := any(oopsErr.Code()).(string); ok {
		return code
	}
	return ""
}
