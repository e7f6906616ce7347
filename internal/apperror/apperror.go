package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how it must be reported to the caller.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindDelivery       Kind = "delivery"
	KindInternal       Kind = "internal"
)

// Error is the error type returned across package boundaries. Message is
// safe to show to the client; Err carries the underlying cause for logs.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) error {
	return New(KindAuthentication, message)
}

func Forbidden(message string) error {
	return New(KindAuthorization, message)
}

func Invalid(message string) error {
	return New(KindValidation, message)
}

func Invalidf(format string, args ...any) error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(message string) error {
	return New(KindNotFound, message)
}

func Internal(err error) error {
	return Wrap(KindInternal, "internal server error", err)
}

// KindOf reports the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the text that may be sent back to a client.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error kind to the status code used by the REST layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
