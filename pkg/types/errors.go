// Package types holds the error kinds shared by the calculator packages.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error tag constants.
const (
	TagInvalidExpression = "InvalidExpression"
	TagZeroDivisionError = "ZeroDivisionError"
	TagValueError        = "ValueError"
	TagNotFound          = "NotFound"
)

// CalcError is a calculator failure with a human-readable message and tags.
type CalcError struct {
	Message string
	Code    int64
	Tags    []string
}

// Error implements the error interface.
func (e *CalcError) Error() string {
	if e.HasTag(TagInvalidExpression) {
		return "invalid expression: " + e.Message
	}
	return e.Message
}

// HasTag returns true if the error has the specified tag.
func (e *CalcError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Describe renders the error with its tags, for logs.
func (e *CalcError) Describe() string {
	return fmt.Sprintf("%s (code=%d, tags=[%s])", e.Message, e.Code, strings.Join(e.Tags, ", "))
}

// Common error constructors.

// NewInvalidExpression creates an InvalidExpression error carrying reason.
func NewInvalidExpression(reason string) *CalcError {
	return &CalcError{Message: reason, Code: 400, Tags: []string{TagInvalidExpression}}
}

// NewZeroDivisionError creates the division-by-zero failure. It is also an
// InvalidExpression.
func NewZeroDivisionError() *CalcError {
	return &CalcError{
		Message: "divide by zero",
		Code:    400,
		Tags:    []string{TagInvalidExpression, TagZeroDivisionError},
	}
}

// NewValueError creates a ValueError.
func NewValueError(msg string) *CalcError {
	return &CalcError{Message: msg, Code: 400, Tags: []string{TagValueError}}
}

// NewNotFound creates a NotFound error.
func NewNotFound(msg string) *CalcError {
	return &CalcError{Message: msg, Code: 404, Tags: []string{TagNotFound}}
}

// HasTag reports whether err is a *CalcError carrying tag.
func HasTag(err error, tag string) bool {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.HasTag(tag)
	}
	return false
}

// IsInvalidExpression reports whether err rejects an expression.
func IsInvalidExpression(err error) bool {
	return HasTag(err, TagInvalidExpression)
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool {
	return HasTag(err, TagNotFound)
}
