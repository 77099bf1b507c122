// Package nodeerr provides the closed error-kind taxonomy used throughout the
// node (spec §7) plus a ToolError-shaped wrapper that preserves cause chains
// across component boundaries, grounded on runtime/agent/toolerrors.ToolError.
package nodeerr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories that drive caller behavior.
type Kind string

const (
	// BadRequest indicates a malformed envelope, schema mismatch, or bad
	// parameters. Surfaced to the caller as-is.
	BadRequest Kind = "bad_request"
	// Forbidden indicates a permission check failed. The message must not
	// leak why access was denied beyond the resource name.
	Forbidden Kind = "forbidden"
	// NotFound indicates the referenced entity does not exist.
	NotFound Kind = "not_found"
	// Conflict indicates a natural-key collision (code reused, job already
	// finished).
	Conflict Kind = "conflict"
	// Unauthorized indicates signature verification failed.
	Unauthorized Kind = "unauthorized"
	// Retryable indicates a transient store or network failure. Callers may
	// retry; the core does not auto-retry except where spec'd (invoice
	// polling).
	Retryable Kind = "retryable"
	// Fatal indicates key-file or store corruption. The process should
	// terminate so a supervisor can restart it.
	Fatal Kind = "fatal"
)

// Error is a structured node failure carrying a Kind and an optional wrapped
// cause. It implements error and supports errors.Is/As via Unwrap, mirroring
// the teacher's ToolError chain shape.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind that wraps an underlying error.
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Errorf formats a message and returns it as an Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap supports errors.Is/As across nodeerr.Error chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// KindOf extracts the Kind from err, walking the error chain. Unrecognized
// errors are classified as Retryable, matching the spec's instruction that
// store/network failures bubble up as Retryable by default.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return Retryable
}

// Is reports whether err is a nodeerr.Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
