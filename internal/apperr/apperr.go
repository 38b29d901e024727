// Package apperr is the error taxonomy shared by the booking core, the
// reminder cycle and the tool dispatcher. Errors are classified where they are
// produced; callers switch on Kind instead of inspecting message text.
package apperr

import (
	"context"
	"errors"
)

type Kind string

const (
	NotFound     Kind = "not_found"
	Conflict     Kind = "conflict"
	InvalidInput Kind = "invalid_input"
	Unavailable  Kind = "unavailable"
	Unsupported  Kind = "unsupported"
	Internal     Kind = "internal"
)

// Error carries a Kind, a user-safe message and an optional cause.
// Msg is safe to show to a patient; the cause never is.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches kind and msg to err. A nil err yields nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain.
// Context deadlines and cancellations count as Unavailable; anything
// unclassified is Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable
	}
	return Internal
}

// Message returns the user-safe message of the outermost *Error, or fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
