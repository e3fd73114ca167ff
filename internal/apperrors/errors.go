// Package apperrors defines the error taxonomy shared by services and handlers.
//
// Services return typed errors built with New or Newf; handlers translate them
// into HTTP status codes with HTTPStatus and PublicMessage.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInternal      = errors.New("internal error")
	ErrConfiguration = errors.New("configuration error")
)

// internalMessage is returned to clients for every error that is not typed
const internalMessage = "internal server error"

// Error is a typed error carrying a kind and a client-safe message
type Error struct {
	kind    error
	message string
}

// New creates a typed error of the given kind
func New(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Newf creates a typed error of the given kind with a formatted message
func Newf(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.message
}

// Unwrap exposes the kind so that errors.Is(err, ErrConflict) works
func (e *Error) Unwrap() error {
	return e.kind
}

// Kind returns the kind of the error
func (e *Error) Kind() error {
	return e.kind
}

// HTTPStatus maps an error to the HTTP status code of its kind.
// Untyped errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to a client.
// Internal and configuration failures never leak their details.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return internalMessage
	}
	if errors.Is(appErr.kind, ErrInternal) || errors.Is(appErr.kind, ErrConfiguration) {
		return internalMessage
	}
	return appErr.message
}
