// Package errors defines the sentinel errors and error types shared across
// the library. Parse failures carry enough position information to point at
// the offending line of a persisted file.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotRestartable = errors.New("corpus source is not restartable")
	ErrCorruptHeader  = errors.New("corrupt corpus header")
	ErrMalformedEntry = errors.New("malformed corpus entry")
	ErrUnknownFormat  = errors.New("unknown corpus format")
	ErrClosed         = errors.New("iterator already closed")
)

// ParseError reports a failure while reading a persisted corpus or
// vocabulary file. Line is 1-based; 0 means the position is unknown.
type ParseError struct {
	Path string
	Line int
	Err  error
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Err.Error(), e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Err.Error(), e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParse builds a ParseError around one of the sentinel errors above.
func NewParse(sentinel error, path string, line int, format string, args ...any) *ParseError {
	return &ParseError{
		Path: path,
		Line: line,
		Err:  sentinel,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Is and As re-exports so callers do not need to import both this package
// and the standard library errors package.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
