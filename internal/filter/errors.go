package filter

import (
	"errors"
	"fmt"
)

// Lexer errors.
var (
	ErrUnterminatedString = errors.New("unterminated string")
	ErrInvalidEscape      = errors.New("invalid escape sequence")
)

// Parser errors.
var (
	ErrEmptyFilter     = errors.New("empty filter")
	ErrUnknownFlag     = errors.New("unknown filter flag")
	ErrMissingArgument = errors.New("missing flag argument")
	ErrInvalidInt      = errors.New("invalid integer argument")
	ErrUnmatchedParen  = errors.New("unmatched parenthesis")
	ErrUnexpectedToken = errors.New("unexpected token")
)

// ParseError reports malformed filter text with its position. It is surfaced
// verbatim to the operator; no partial match is attempted.
type ParseError struct {
	Pos     int    // byte offset in input
	Message string // human-readable error message
	Err     error  // underlying sentinel error (for errors.Is)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter error at position %d: %s", e.Pos, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// newParseError creates a ParseError with the given position and sentinel.
func newParseError(pos int, err error, msgFmt string, args ...any) *ParseError {
	return &ParseError{
		Pos:     pos,
		Message: fmt.Sprintf(msgFmt, args...),
		Err:     err,
	}
}
