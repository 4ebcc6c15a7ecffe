package keyset

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of
// ErrConfiguration, ErrArgument, ErrCursorFormat or ErrCursorMismatch.
var (
	ErrConfiguration  = errors.New("keyset: configuration error")
	ErrArgument       = errors.New("keyset: invalid argument")
	ErrCursorFormat   = errors.New("keyset: malformed cursor")
	ErrCursorMismatch = errors.New("keyset: cursor does not match sort order")
)

// Configuration failures.
var (
	ErrUnknownColumn   = fmt.Errorf("%w: unknown column", ErrConfiguration)
	ErrAmbiguousColumn = fmt.Errorf("%w: ambiguous column", ErrConfiguration)
	ErrUnsupportedType = fmt.Errorf("%w: unsupported column type", ErrConfiguration)
)

// IsCursorError reports whether err means the caller sent an invalid or stale
// pagination token. Such requests should restart from the first page.
func IsCursorError(err error) bool {
	return errors.Is(err, ErrCursorFormat) || errors.Is(err, ErrCursorMismatch)
}

// CursorErrorClass returns "format" or "mismatch" for cursor errors and ""
// for anything else.
func CursorErrorClass(err error) string {
	switch {
	case errors.Is(err, ErrCursorFormat):
		return "format"
	case errors.Is(err, ErrCursorMismatch):
		return "mismatch"
	}
	return ""
}

func argumentError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrArgument, fmt.Sprintf(format, args...))
}

func formatError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCursorFormat, fmt.Sprintf(format, args...))
}

func mismatchError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCursorMismatch, fmt.Sprintf(format, args...))
}

func fmtConfig(class error, column string, subject any) error {
	return fmt.Errorf("%w %q (%v)", class, column, subject)
}
