package apperrors

import (
	"fmt"
	"net/http"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code and message so that wrapped copies of the
// package sentinels still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Err:     err,
	}
}

// Remote store errors. ErrRemoteUnavailable is transient: the synchronizer
// and the activity relay absorb it and fall back to the offline store, it is
// never surfaced to a caller as a fatal error.
var (
	ErrRemoteUnavailable = New(http.StatusServiceUnavailable, "remote store unavailable", nil)
	ErrNotFound          = New(http.StatusNotFound, "record not found", nil)
)

// Session state machine errors (caller misuse, surfaced immediately)
var (
	ErrNoActiveSession      = New(http.StatusConflict, "no active session", nil)
	ErrSessionAlreadyActive = New(http.StatusConflict, "session already active", nil)
)

// Caller input errors
var (
	ErrItemNotFound     = New(http.StatusNotFound, "item not found in catalog", nil)
	ErrItemNotInSession = New(http.StatusNotFound, "item not in session", nil)
)

// ErrPersistenceFailure means both the remote and the local write failed, so
// the action has no durable record anywhere. This is the only storage error
// that propagates to the caller as a hard failure.
var ErrPersistenceFailure = New(http.StatusInternalServerError, "no durable copy of the change could be written", nil)
