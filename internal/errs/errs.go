// Package errs defines the typed error taxonomy shared by the rendering,
// synchronization and export subsystems.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure. Cancelled is not an error in the usual
// sense: it is the expected outcome of a superseded render request and
// is swallowed before reaching the UI boundary.
type Kind string

const (
	Cancelled       Kind = "cancelled"
	DecodeError     Kind = "decode-error"
	IOError         Kind = "io-error"
	UnsupportedPage Kind = "unsupported-page"
	ExportError     Kind = "export-error"
)

// Error is a classified error with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. Context cancellation collapses to
// Cancelled regardless of the requested kind, so supersede outcomes are
// never misreported as genuine failures.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	if errors.Is(err, context.Canceled) {
		kind = Cancelled
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain. Plain context.Canceled is
// reported as Cancelled; anything else unclassified maps to IOError.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	return IOError
}

// IsCancelled reports whether the error represents a superseded or
// cancelled operation.
func IsCancelled(err error) bool {
	return err != nil && KindOf(err) == Cancelled
}
