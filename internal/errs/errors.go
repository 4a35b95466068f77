package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it without parsing messages.
type Kind string

const (
	KindNotFound                Kind = "not_found"
	KindInvalid                 Kind = "invalid"
	KindConflict                Kind = "conflict"
	KindDuplicateMovementNumber Kind = "duplicate_movement_number"
	KindClosedPeriod            Kind = "closed_period"
	KindInvalidMonth            Kind = "invalid_month"
	KindAlreadyVoid             Kind = "already_void"
	KindAlreadyClosed           Kind = "already_closed"
	KindFileNotFound            Kind = "file_not_found"
	KindCatalogMissing          Kind = "catalog_missing"
	KindImportInProgress        Kind = "import_in_progress"
)

// Error carries a Kind plus a human-readable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return string(e.Kind) + ": " + e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against a bare sentinel of the same Kind, so
// errors.Is(err, errs.ErrClosedPeriod) holds for any closed-period error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is checks across layers.
var (
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrInvalid                 = &Error{Kind: KindInvalid}
	ErrConflict                = &Error{Kind: KindConflict}
	ErrDuplicateMovementNumber = &Error{Kind: KindDuplicateMovementNumber}
	ErrClosedPeriod            = &Error{Kind: KindClosedPeriod}
	ErrInvalidMonth            = &Error{Kind: KindInvalidMonth}
	ErrAlreadyVoid             = &Error{Kind: KindAlreadyVoid}
	ErrAlreadyClosed           = &Error{Kind: KindAlreadyClosed}
	ErrFileNotFound            = &Error{Kind: KindFileNotFound}
	ErrCatalogMissing          = &Error{Kind: KindCatalogMissing}
	ErrImportInProgress        = &Error{Kind: KindImportInProgress}
)

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ClosedPeriod names the closed month in the message, e.g. "period 2025-10 is closed".
func ClosedPeriod(year, month int) *Error {
	return New(KindClosedPeriod, "period %04d-%02d is closed: treasury movements cannot be changed", year, month)
}

// InvalidMonth rejects a month outside 1..12.
func InvalidMonth(month int) *Error {
	return New(KindInvalidMonth, "month must be between 1 and 12, got %d", month)
}
