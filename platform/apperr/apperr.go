// Package apperr provides the typed errors services return. The HTTP layer
// maps a Kind to a status code without knowing which module failed.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error. Its value doubles as the log label.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	// KindConflict covers duplicate phones and other unique violations.
	KindConflict Kind = "conflict"
	// KindForbidden means the caller's role or scope does not reach the record.
	KindForbidden Kind = "forbidden"
	KindInternal  Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindNotFound:   http.StatusNotFound,
	KindValidation: http.StatusBadRequest,
	KindConflict:   http.StatusConflict,
	KindForbidden:  http.StatusForbidden,
	KindInternal:   http.StatusInternalServerError,
}

// Error carries a Kind, a client-safe Message, and optionally the failing
// operation, a cause and response details.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, e.Message)
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to a response status. Unknown kinds are 500.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New creates an error of kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of kind caused by err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp records the failing operation, e.g. "rawleads.repository.List".
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches a JSON-serializable payload for the response body.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Validation(message string) *Error { return New(KindValidation, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func Internal(message string) *Error   { return New(KindInternal, message) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries an *Error of kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
