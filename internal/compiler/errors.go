package compiler

import (
	"errors"
	"fmt"

	"github.com/gnoswap-labs/mofc/internal/mof"
)

// Code classifies a semantic error. Values follow the CIM status codes.
type Code int

const (
	CodeFailed              Code = 1
	CodeUnresolvedReference Code = 6
	CodeInvalidSuperclass   Code = 10
	CodeTypeMismatch        Code = 13
)

func (c Code) String() string {
	switch c {
	case CodeFailed:
		return "failed"
	case CodeUnresolvedReference:
		return "unresolved-reference"
	case CodeInvalidSuperclass:
		return "invalid-superclass"
	case CodeTypeMismatch:
		return "type-mismatch"
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// SemanticError reports a well-formed declaration that violates the
// object model.
type SemanticError struct {
	Code   Code
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Msg)
}

func newError(file string, pos mof.Position, code Code, format string, args ...any) *SemanticError {
	return &SemanticError{
		Code:   code,
		File:   file,
		Line:   pos.Line,
		Column: pos.Column,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// IsCode reports whether err, or any error it wraps or joins, is a
// *SemanticError with the given code.
func IsCode(err error, code Code) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *SemanticError:
		return e.Code == code
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsCode(inner, code) {
				return true
			}
		}
		return false
	}
	return IsCode(errors.Unwrap(err), code)
}

// errUndefinedAlias marks a value conversion that referenced an alias the
// compile unit has not defined yet.
var errUndefinedAlias = errors.New("alias is not defined")
