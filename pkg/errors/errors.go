package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrPayloadTooLarge    = New("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, "payload too large")
	ErrCacheMiss          = errors.New("cache miss")
)

// Timetable error taxonomy.
var (
	// ErrReferenceResolution marks an imported row naming an unknown teacher, room, lesson, class or subject.
	ErrReferenceResolution = New("REFERENCE_RESOLUTION", http.StatusUnprocessableEntity, "imported row references unknown data")
	// ErrNoObligations is returned when a class has neither syllabus entries nor subject-teacher mappings.
	ErrNoObligations = New("NO_OBLIGATIONS", http.StatusPreconditionFailed, "no syllabus or subject-teacher mapping for class")
	// ErrInvalidForm is returned when a cell edit has no complete row left to save.
	ErrInvalidForm = New("INVALID_FORM", http.StatusBadRequest, "cell has no complete row to save")
	// ErrTransientFetch surfaces a read that kept failing after the retry budget.
	ErrTransientFetch = New("TRANSIENT_FETCH", http.StatusServiceUnavailable, "reference data temporarily unavailable")
	// ErrWrite marks a failed delete or insert against the schedule store.
	ErrWrite = New("WRITE_ERROR", http.StatusInternalServerError, "failed to write schedule")
)

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
