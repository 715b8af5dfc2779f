package core

import (
	"errors"
	"fmt"
)

// Operation outcomes are classified into four stable kinds. Callers branch on
// the kind with errors.Is; the message is safe to show to users, while the
// wrapped cause stays internal (logged, never serialized).
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failure")
)

// Error carries a classification kind, a user-presentable message and an
// optional internal cause.
type Error struct {
	Kind  error
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

// Is matches the error against its kind, so
// errors.Is(err, core.ErrUnauthorized) works through wrapping.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap exposes the internal cause for logging; the kind is matched via Is.
func (e *Error) Unwrap() error {
	return e.cause
}

// Unauthorizedf builds an Unauthorized error with a formatted message.
func Unauthorizedf(format string, args ...any) *Error {
	return &Error{Kind: ErrUnauthorized, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// InvalidInputf builds an InvalidInput error with a formatted message.
func InvalidInputf(format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a storage failure. The cause is kept for logs and
// never serialized to callers.
func PersistenceError(cause error) *Error {
	return &Error{Kind: ErrPersistence, Msg: "storage operation failed", cause: cause}
}
