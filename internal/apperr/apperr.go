// Package apperr carries the error kinds services return and the HTTP status
// each kind maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	Validation
	Forbidden
	Unauthorized
	PayloadTooLarge
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	case Forbidden:
		return "forbidden"
	case Unauthorized:
		return "unauthorized"
	case PayloadTooLarge:
		return "payload_too_large"
	case Conflict:
		return "conflict"
	}
	return "internal"
}

// HTTPStatus is the response status for errors of kind k.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Validation:
		return http.StatusBadRequest
	case Forbidden:
		return http.StatusForbidden
	case Unauthorized:
		return http.StatusUnauthorized
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err,
// apperr.ErrNotFound) works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound        = &Error{Kind: NotFound}
	ErrValidation      = &Error{Kind: Validation}
	ErrForbidden       = &Error{Kind: Forbidden}
	ErrUnauthorized    = &Error{Kind: Unauthorized}
	ErrPayloadTooLarge = &Error{Kind: PayloadTooLarge}
	ErrConflict        = &Error{Kind: Conflict}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message to err.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFoundf(format string, args ...any) *Error   { return New(NotFound, format, args...) }
func Validationf(format string, args ...any) *Error { return New(Validation, format, args...) }
func Forbiddenf(format string, args ...any) *Error  { return New(Forbidden, format, args...) }
func Conflictf(format string, args ...any) *Error   { return New(Conflict, format, args...) }

func Unauthorizedf(format string, args ...any) *Error {
	return New(Unauthorized, format, args...)
}

func TooLargef(format string, args ...any) *Error {
	return New(PayloadTooLarge, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message is the client-facing text for err. Internal errors never leak
// their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "internal server error"
}
