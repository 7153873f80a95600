// Package apperror defines the error kinds the service reports to callers and
// their HTTP mapping.
package apperror

import (
	"errors"
	"net/http"
)

// Kind is a stable, machine-readable error category. Kinds are themselves
// errors so callers can match with errors.Is(err, apperror.Conflict).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	InvalidToken       Kind = "invalid_token"
	InvalidCredentials Kind = "invalid_credentials"
	Forbidden          Kind = "forbidden"
	NotFound           Kind = "not_found"
	InvalidTransition  Kind = "invalid_transition"
	Conflict           Kind = "conflict"
	EmailTaken         Kind = "email_taken"
	InvalidInput       Kind = "invalid_input"
	Unavailable        Kind = "unavailable"
	Internal           Kind = "internal"
)

var statusByKind = map[Kind]int{
	InvalidToken:       http.StatusUnauthorized,
	InvalidCredentials: http.StatusUnauthorized,
	Forbidden:          http.StatusForbidden,
	NotFound:           http.StatusNotFound,
	InvalidTransition:  http.StatusConflict,
	Conflict:           http.StatusConflict,
	EmailTaken:         http.StatusConflict,
	InvalidInput:       http.StatusBadRequest,
	Unavailable:        http.StatusServiceUnavailable,
	Internal:           http.StatusInternalServerError,
}

// Error carries a Kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind attached to err, or Internal if there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}
	return Internal
}

// Message returns the caller-facing message. Internal errors never leak their cause.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != Internal && appErr.Message != "" {
		return appErr.Message
	}
	switch kind := KindOf(err); kind {
	case Internal:
		return "internal server error"
	default:
		return string(kind)
	}
}

func HTTPStatus(kind Kind) int {
	if code, ok := statusByKind[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a caller may repeat the request unchanged.
func Retryable(err error) bool {
	return errors.Is(err, Unavailable)
}
