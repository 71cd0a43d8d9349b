package types

import (
	"fmt"
	"strings"
)

// Error tags attached to evaluation failures.
const (
	TagTypeError         = "TypeError"
	TagValueError        = "ValueError"
	TagKeyError          = "KeyError"
	TagIndexError        = "IndexError"
	TagZeroDivisionError = "ZeroDivisionError"
	TagArgumentError     = "ArgumentError"
	// TagLookupError marks a missing list index or map key: failures that
	// depend on the data rather than on the expression.
	TagLookupError = "LookupError"
)

// EvalError is a failure raised while evaluating an expression.
type EvalError struct {
	Message string
	Tags    []string
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s", strings.Join(e.Tags, ", "), e.Message)
}

// ToValue converts the error to a map value with message and tags.
func (e *EvalError) ToValue() Value {
	m := NewOrderedMap()
	m.Set("message", NewString(e.Message))
	tags := make([]Value, len(e.Tags))
	for i, tag := range e.Tags {
		tags[i] = NewString(tag)
	}
	m.Set("tags", NewList(tags))
	return NewMap(m)
}

// HasTag returns true if the error has the specified tag.
func (e *EvalError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NewTypeError creates a TypeError.
func NewTypeError(msg string) *EvalError {
	return &EvalError{Message: msg, Tags: []string{TagTypeError}}
}

// NewValueError creates a ValueError.
func NewValueError(msg string) *EvalError {
	return &EvalError{Message: msg, Tags: []string{TagValueError}}
}

// NewKeyError creates a KeyError, raised for unknown columns and variables.
func NewKeyError(msg string) *EvalError {
	return &EvalError{Message: msg, Tags: []string{TagKeyError}}
}

// NewMissingKeyError creates a KeyError for a map key that is not present.
// Unlike NewKeyError it is also tagged LookupError.
func NewMissingKeyError(msg string) *EvalError {
	return &EvalError{Message: msg, Tags: []string{TagKeyError, TagLookupError}}
}

// NewIndexError creates an IndexError.
func NewIndexError(msg string) *EvalError {
	return &EvalError{Message: msg, Tags: []string{TagIndexError, TagLookupError}}
}

// NewOverflowError creates a ValueError for an int result outside int64.
func NewOverflowError(op string) *EvalError {
	return NewValueError(fmt.Sprintf("integer overflow in %s", op))
}

// NewZeroDivisionError creates a ZeroDivisionError.
func NewZeroDivisionError() *EvalError {
	return &EvalError{Message: "division by zero", Tags: []string{TagZeroDivisionError}}
}

// NewArgumentError creates an ArgumentError for a bad function call.
func NewArgumentError(msg string) *EvalError {
	return &EvalError{Message: msg, Tags: []string{TagArgumentError, TagTypeError}}
}
