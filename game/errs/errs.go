// Package errs defines the error kinds surfaced by every progression
// operation. Callers branch on Kind, never on message text.
package errs

import (
	"errors"
	"fmt"
	"math"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	KindNotFound              Kind = "NotFound"
	KindInvalidState          Kind = "InvalidState"
	KindTooEarly              Kind = "TooEarly"
	KindConflict              Kind = "Conflict"
	KindInsufficientResources Kind = "InsufficientResources"
	KindInvalidType           Kind = "InvalidType"
	KindInvalidArgument       Kind = "InvalidArgument"
	KindForbidden             Kind = "Forbidden"
	KindInvalidCredentials    Kind = "InvalidCredentials"
	KindUsernameTaken         Kind = "UsernameTaken"
	KindWeakPassword          Kind = "WeakPassword"
	KindUnavailable           Kind = "Unavailable"
)

// Error is the concrete error returned by the core.
type Error struct {
	Kind    Kind
	Message string
	// Remaining is the number of seconds left before a TooEarly
	// precondition is met. Zero for every other kind.
	Remaining float64
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, errs.New(errs.KindNotFound, ""))
// style sentinels work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New returns an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf returns an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(what string) *Error { return Newf(KindNotFound, "%s not found", what) }

func InvalidState(msg string) *Error { return New(KindInvalidState, msg) }

func Conflict(msg string) *Error { return New(KindConflict, msg) }

func Forbidden(msg string) *Error { return New(KindForbidden, msg) }

func InvalidType(what, name string) *Error {
	return Newf(KindInvalidType, "invalid %s type %q", what, name)
}

func InvalidArgument(msg string) *Error { return New(KindInvalidArgument, msg) }

// TooEarly reports a time precondition that is not met yet. remaining is in
// seconds and never reported as negative.
func TooEarly(msg string, remaining float64) *Error {
	return &Error{Kind: KindTooEarly, Message: msg, Remaining: math.Max(remaining, 0)}
}

// Unavailable marks a store-level failure.
func Unavailable(err error) *Error {
	return &Error{Kind: KindUnavailable, Message: "store unavailable", Err: err}
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// RemainingOf returns the remaining seconds carried by a TooEarly error.
func RemainingOf(err error) (float64, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindTooEarly {
		return e.Remaining, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
