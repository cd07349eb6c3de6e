package main

import (
	"fmt"
	"strings"
)

// InternalError is the panic payload for invariant violations inside the
// compiler. It is never produced by an invalid input program.
type InternalError struct {
	Message string
}

func (e InternalError) Error() string {
	return "internal compiler error: " + e.Message
}

// internalError aborts the current compilation.
func internalError(format string, args ...any) {
	panic(InternalError{Message: fmt.Sprintf(format, args...)})
}

// CompileError is a reportable diagnostic attached to a statement.
type CompileError struct {
	Message string
	Line    int // 0 when unknown
}

func (e CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ErrorCollection accumulates diagnostics so a single run can report every
// failing statement instead of stopping at the first.
type ErrorCollection struct {
	errors []CompileError
}

func (ec *ErrorCollection) Add(err error, line int) {
	ec.errors = append(ec.errors, CompileError{Message: err.Error(), Line: line})
}

// Merge appends every diagnostic of other.
func (ec *ErrorCollection) Merge(other ErrorCollection) {
	ec.errors = append(ec.errors, other.errors...)
}

func (ec *ErrorCollection) HasErrors() bool {
	return len(ec.errors) > 0
}

func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

func (ec *ErrorCollection) Errors() []CompileError {
	return ec.errors
}

func (ec *ErrorCollection) String() string {
	var sb strings.Builder
	for i, err := range ec.errors {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}
