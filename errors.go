package sbomdiff

import (
	"errors"
	"strings"
)

// Error is the sbomdiff error domain type.
//
// Callers should inspect errors coming out of Diff with [errors.As] to
// recover an *Error, then compare its Kind against one of the declared
// ErrorKind values with [errors.Is]. Intermediate layers should prefer
// wrapping with "%w" over constructing another Error except to add
// [ErrorKind] information.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Op      string
	Message string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrInvalidInput, ErrResourceLimit, ErrCancelled, ErrInternal:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]")
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Inner != nil {
		b.WriteString(": ")
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is]; callers should compare against a declared
// ErrorKind rather than a specific *Error value.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error { return e.Inner }

// ErrorKind is a closed set of error classifications.
type ErrorKind string

// Error implements error so an ErrorKind can be compared directly with
// errors.Is against an *Error's Kind.
func (k ErrorKind) Error() string { return string(k) }

// Recognized error kinds.
var (
	// ErrInvalidInput reports that a precondition on a NormalizedSbom was
	// violated (dangling edge, duplicate component ID, missing required
	// field). Fatal: the call returns without partial results.
	ErrInvalidInput = ErrorKind("invalid_input")

	// ErrResourceLimit reports that a component's candidate set exceeded an
	// implementation ceiling even after max_candidates capping. Non-fatal
	// in the sense that the diff still completes; the offending component
	// is reported unmatched instead of aborting the run.
	ErrResourceLimit = ErrorKind("resource_limit")

	// ErrCancelled reports cooperative cancellation was observed; no
	// result is returned.
	ErrCancelled = ErrorKind("cancelled")

	// ErrInternal is the catch-all for anything else.
	ErrInternal = ErrorKind("internal")
)
