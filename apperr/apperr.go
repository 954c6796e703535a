// Package apperr defines the application error taxonomy with
// machine-readable codes and their HTTP status mapping.
//
// Conditional-write outcomes ("already liked", "handle taken during
// allocation") are deliberately not part of this taxonomy: they are boolean
// results consumed by callers, and turning them into errors would make
// idempotent retries indistinguishable from genuine failures.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation          Code = "VALIDATION"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeForbidden           Code = "FORBIDDEN"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeAllocationExhausted Code = "ALLOCATION_EXHAUSTED"
	CodeStore               Code = "STORE"
)

// HTTPStatus returns the HTTP status for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAllocationExhausted:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a code and message.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error by code, so sentinel-style checks work:
//
//	errors.Is(err, apperr.NotFound(""))
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status for this error.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy carrying structured details for the response body.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// Validation creates a VALIDATION error.
func Validation(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }

// NotFound creates a NOT_FOUND error.
func NotFound(msg string) *Error { return &Error{Code: CodeNotFound, Message: msg} }

// Conflict creates a CONFLICT error.
func Conflict(msg string) *Error { return &Error{Code: CodeConflict, Message: msg} }

// Forbidden creates a FORBIDDEN error.
func Forbidden(msg string) *Error { return &Error{Code: CodeForbidden, Message: msg} }

// Unauthorized creates an UNAUTHORIZED error.
func Unauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }

// AllocationExhausted creates an ALLOCATION_EXHAUSTED error.
func AllocationExhausted(msg string) *Error {
	return &Error{Code: CodeAllocationExhausted, Message: msg}
}

// Store wraps a backend fault as a STORE error.
func Store(msg string, cause error) *Error {
	return &Error{Code: CodeStore, Message: msg, cause: cause}
}

// CodeOf extracts the Code from err, or CodeStore for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStore
}
