// Package apperr defines the domain error taxonomy and its HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeCapacityExceeded Code = "CAPACITY_EXCEEDED"
	CodeInvalidState     Code = "INVALID_STATE"
	CodeForbidden        Code = "FORBIDDEN"
	CodeValidation       Code = "VALIDATION"
	CodeInternal         Code = "INTERNAL"
)

// Error carries a code and a caller-facing message. None of these are retried
// or recovered locally; they surface directly to the caller.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(CodeNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(CodeConflict, format, args...)
}

func CapacityExceeded(format string, args ...interface{}) *Error {
	return newf(CodeCapacityExceeded, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newf(CodeInvalidState, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(CodeForbidden, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newf(CodeValidation, format, args...)
}

func Internal(format string, args ...interface{}) *Error {
	return newf(CodeInternal, format, args...)
}

// CodeOf extracts the category of err, or CodeInternal for anything
// that is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a category to the status the handlers answer with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeCapacityExceeded:
		return http.StatusConflict
	case CodeInvalidState, CodeValidation:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
