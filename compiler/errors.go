package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrNotTraversable     = errors.New("value cannot be traversed")
	ErrIndexRange         = errors.New("index out of range")
	ErrEmptyExpression    = errors.New("empty expression")
	ErrUnknownDirective   = errors.New("unknown directive")
	ErrMissingModifier    = errors.New("directive requires a modifier")
	ErrUnexpectedModifier = errors.New("directive does not take a modifier")
	ErrMalformedDirective = errors.New("malformed directive")
	ErrUnknownMethod      = errors.New("unknown method")
)

// ResolutionError reports a path that could not be walked.
type ResolutionError struct {
	Expr    string
	Segment string
	Err     error
}

func (e *ResolutionError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("resolve %q: %v", e.Expr, e.Err)
	}
	return fmt.Sprintf("resolve %q at %q: %v", e.Expr, e.Segment, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// DirectiveError reports a directive attribute that could not be compiled.
type DirectiveError struct {
	Attr string
	Err  error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("directive %q: %v", e.Attr, e.Err)
}

func (e *DirectiveError) Unwrap() error { return e.Err }
