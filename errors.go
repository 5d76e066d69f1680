package fluxion

import (
	"fmt"
	"strings"
)

// ParseError represents an error that occurred during parsing
type ParseError struct {
	Message string
	File    string
	Line    int
	Column  int
	Context string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s at %s:%d:%d", e.Message, e.File, e.Line, e.Column))
	if e.Context != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Context)
	}
	return sb.String()
}

// DesugarError marks an internal invariant violation in the desugaring
// transform. It indicates a bug in the pipeline, not a problem with user
// input.
type DesugarError struct {
	Message string
}

func (e *DesugarError) Error() string {
	return "desugar: " + e.Message
}

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	ErrUnknownVariable ErrorKind = iota
	ErrUnknownFunction
	ErrArity
	ErrType
	ErrDivisionByZero
	ErrBuiltin
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownVariable:
		return "UnknownVariable"
	case ErrUnknownFunction:
		return "UnknownFunction"
	case ErrArity:
		return "ArityError"
	case ErrType:
		return "TypeError"
	case ErrDivisionByZero:
		return "DivisionByZero"
	case ErrBuiltin:
		return "BuiltinError"
	}
	return "EvalError"
}

// EvalError represents an error that occurred during evaluation
type EvalError struct {
	Kind    ErrorKind
	Message string
	Node    Node
	Cause   error
}

// positioned is satisfied by nodes that carry a source location.
type positioned interface {
	sourcePos() (line, col int)
}

func (e *EvalError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if p, ok := e.Node.(positioned); ok {
		if line, col := p.sourcePos(); line > 0 {
			return fmt.Sprintf("%s at %d:%d", msg, line, col)
		}
	}
	return msg
}

func (e *EvalError) Unwrap() error {
	return e.Cause
}

func evalErrf(kind ErrorKind, node Node, format string, args ...any) *EvalError {
	return &EvalError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	}
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}
