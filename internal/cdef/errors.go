package cdef

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; the typed errors below match them.
var (
	ErrInvalidPrecision  = errors.New("cdef: invalid precision")
	ErrEmptySequence     = errors.New("cdef: empty sequence")
	ErrNonNumeric        = errors.New("cdef: non-numeric value")
	ErrInvalidName       = errors.New("cdef: invalid identifier")
	ErrInvalidLineLength = errors.New("cdef: invalid line length")
)

// InvalidPrecisionError is returned for a precision other than single or double.
type InvalidPrecisionError struct {
	Value string
}

func (e *InvalidPrecisionError) Error() string {
	return fmt.Sprintf("cdef: invalid precision %q (expected single|double)", e.Value)
}

func (e *InvalidPrecisionError) Is(target error) bool { return target == ErrInvalidPrecision }

// EmptySequenceError is returned when there is nothing to declare.
type EmptySequenceError struct {
	Name string
}

func (e *EmptySequenceError) Error() string {
	if e.Name == "" {
		return "cdef: empty sequence"
	}
	return fmt.Sprintf("cdef: %s: empty sequence", e.Name)
}

func (e *EmptySequenceError) Is(target error) bool { return target == ErrEmptySequence }

// NonNumericValueError reports an element that has no C floating literal form.
// Line and Column are set by readers that parse text input (1-based, 0 if unknown).
type NonNumericValueError struct {
	Index  int
	Value  any
	Line   int
	Column int
	Err    error
}

func (e *NonNumericValueError) Error() string {
	msg := fmt.Sprintf("cdef: element %d: %v is not a finite number", e.Index, e.Value)
	if s, ok := e.Value.(string); ok {
		msg = fmt.Sprintf("cdef: element %d: %q is not a number", e.Index, s)
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d, column %d)", msg, e.Line, e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NonNumericValueError) Is(target error) bool { return target == ErrNonNumeric }

func (e *NonNumericValueError) Unwrap() error { return e.Err }

// InvalidNameError is returned when the array or length name is not a C identifier.
type InvalidNameError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidNameError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "not a valid C identifier"
	}
	if e.Value == "" && e.Reason == "" {
		return fmt.Sprintf("cdef: %s is required", e.Field)
	}
	return fmt.Sprintf("cdef: %s %q: %s", e.Field, e.Value, reason)
}

func (e *InvalidNameError) Is(target error) bool { return target == ErrInvalidName }

// InvalidLineLengthError is returned when packing with a non-positive width.
type InvalidLineLengthError struct {
	Value int
}

func (e *InvalidLineLengthError) Error() string {
	return fmt.Sprintf("cdef: line length must be positive, got %d", e.Value)
}

func (e *InvalidLineLengthError) Is(target error) bool { return target == ErrInvalidLineLength }
