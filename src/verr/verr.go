// Package verr defines vectra's error taxonomy (spec.md §7). The teacher
// mixes returning a Result value with the occasional direct error return
// and, on the web handler layer, an HTTP status translation; this package
// standardises on a single typed error at every boundary the way spec.md §7
// and DESIGN NOTES ("Result-or-throw duality ... standardise on Result at
// every boundary") ask for, built in the teacher's sentinel-error style
// (column/chunk.go's errAppendTypeMismatch etc, wrapped with %w).
package verr

import (
	"errors"
	"fmt"
)

// Kind classifies a vectra error so callers can branch on it with Is,
// without string-matching messages.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSchemaMismatch
	KindTypeMismatch
	KindInvalidInteger
	KindInvalidFloat
	KindUnclosedQuote
	KindDivisionByZero
	KindOverflow
	KindCapacityExceeded
	KindOutOfBudget
	KindCancelled
	KindInvalidArgument
	KindEvalError
)

func (k Kind) String() string {
	names := [...]string{
		"Unknown", "SchemaMismatch", "TypeMismatch", "InvalidInteger", "InvalidFloat",
		"UnclosedQuote", "DivisionByZero", "Overflow", "CapacityExceeded", "OutOfBudget",
		"Cancelled", "InvalidArgument", "EvalError",
	}
	if int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// Error is a typed vectra error carrying enough location context for
// diagnosis: a column name, a row index, and/or a byte offset, whichever
// apply to the failure (spec.md §7).
type Error struct {
	Kind    Kind
	Column  string
	Row     int
	Offset  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	loc := ""
	if e.Column != "" {
		loc += fmt.Sprintf(" column=%q", e.Column)
	}
	if e.Row >= 0 {
		loc += fmt.Sprintf(" row=%d", e.Row)
	}
	if e.Offset >= 0 {
		loc += fmt.Sprintf(" offset=%d", e.Offset)
	}
	if loc != "" {
		return fmt.Sprintf("%s:%s", msg, loc)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, verr.KindTypeMismatch) style checks work by
// comparing against a bare Kind sentinel produced by Sentinel(k).
func (e *Error) Is(target error) bool {
	if s, ok := target.(sentinel); ok {
		return e.Kind == Kind(s)
	}
	return false
}

type sentinel Kind

func (s sentinel) Error() string { return Kind(s).String() }

// Sentinel returns a comparison target usable with errors.Is to test an
// error's Kind, e.g. errors.Is(err, verr.Sentinel(verr.KindTypeMismatch)).
func Sentinel(k Kind) error { return sentinel(k) }

// New builds an *Error of the given kind with a formatted message. Row and
// Offset default to -1 (meaning "not applicable"); use With* to set them.
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Row: -1, Offset: -1, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that chains a lower-level cause.
func Wrap(k Kind, cause error, format string, args ...interface{}) *Error {
	e := New(k, format, args...)
	e.cause = cause
	return e
}

// WithColumn returns a copy of e annotated with a column name.
func (e *Error) WithColumn(name string) *Error {
	ne := *e
	ne.Column = name
	return &ne
}

// WithRow returns a copy of e annotated with a row index.
func (e *Error) WithRow(row int) *Error {
	ne := *e
	ne.Row = row
	return &ne
}

// WithOffset returns a copy of e annotated with a byte offset.
func (e *Error) WithOffset(offset int) *Error {
	ne := *e
	ne.Offset = offset
	return &ne
}

// KindOf extracts the Kind of a vectra error, or KindUnknown if err is not one.
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindUnknown
}
