package liquid

import (
	"errors"
	"fmt"
)

var (
	// ErrParse indicates a syntax or structural error in template source.
	ErrParse = errors.New("parse error")

	// ErrRender indicates a failure while evaluating a template.
	ErrRender = errors.New("render error")

	// ErrCompile indicates a failure while lowering a template to a Program.
	ErrCompile = errors.New("compile error")
)

// Error is the engine's recoverable failure type. The parser, renderer and
// compiler all report through it; value coercions never fail and contract
// violations panic instead.
type Error struct {
	Kind    error // one of ErrParse, ErrRender, ErrCompile
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d, column %d: %s", e.Kind, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an Error with a printf-style message.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrorfAt is Errorf with the source position of n attached.
func ErrorfAt(kind error, n *Node, format string, args ...any) *Error {
	e := Errorf(kind, format, args...)
	if n != nil {
		e.Line = n.Line
		e.Column = n.Column
	}
	return e
}
