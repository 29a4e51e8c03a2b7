// Package errors provides coded domain errors for the Contactly API.
//
// Usage:
//
//	// In services - return typed errors
//	if len(req.DuplicateIDs) == 0 {
//	    return errors.InvalidMergeRequest("at least one duplicate is required")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrRecordNotFound) {
//	    ...
//	}
//
//	// Or switch on the Code
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeInvalidSensitivity:
//	    case errors.CodeEmptyFieldSet:
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeValidation    Code = "VALIDATION"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL"

	CodeInvalidSensitivity    Code = "INVALID_SENSITIVITY"
	CodeUnsupportedEntityType Code = "UNSUPPORTED_ENTITY_TYPE"
	CodeEmptyFieldSet         Code = "EMPTY_FIELD_SET"
	CodeInvalidMergeRequest   Code = "INVALID_MERGE_REQUEST"
	CodeRecordNotFound        Code = "RECORD_NOT_FOUND"
	CodeScanCanceled          Code = "SCAN_CANCELED"
	CodeRateLimited           Code = "RATE_LIMITED"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeRecordNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict:
		return http.StatusConflict
	case CodeValidation, CodeInvalidSensitivity, CodeUnsupportedEntityType,
		CodeEmptyFieldSet, CodeInvalidMergeRequest:
		return http.StatusBadRequest
	case CodeScanCanceled:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code, or with a code this
// error's code implies.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		if e.Code == t.Code {
			return true
		}
		implied, ok := impliedCodes[e.Code]
		return ok && implied == t.Code
	}
	return false
}

// impliedCodes lists codes that are a special case of another code.
// A merge naming an unknown record is itself an invalid merge request.
var impliedCodes = map[Code]Code{
	CodeRecordNotFound: CodeInvalidMergeRequest,
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// GetStatus lets the HTTP framework pick the status code for a returned error.
func (e *Error) GetStatus() int {
	return e.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict      = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}

	ErrInvalidSensitivity    = &Error{Code: CodeInvalidSensitivity, Message: "invalid sensitivity"}
	ErrUnsupportedEntityType = &Error{Code: CodeUnsupportedEntityType, Message: "unsupported entity type"}
	ErrEmptyFieldSet         = &Error{Code: CodeEmptyFieldSet, Message: "field set is empty"}
	ErrInvalidMergeRequest   = &Error{Code: CodeInvalidMergeRequest, Message: "invalid merge request"}
	ErrRecordNotFound        = &Error{Code: CodeRecordNotFound, Message: "record not found"}
	ErrScanCanceled          = &Error{Code: CodeScanCanceled, Message: "scan canceled"}
	ErrRateLimited           = &Error{Code: CodeRateLimited, Message: "rate limit exceeded"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// AlreadyExistsf creates an already exists error with formatted message.
func AlreadyExistsf(format string, args ...any) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Conflictf creates a conflict error with formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// InvalidSensitivity reports a sensitivity outside High, Medium and Low.
func InvalidSensitivity(value string) *Error {
	return &Error{
		Code:    CodeInvalidSensitivity,
		Message: fmt.Sprintf("invalid sensitivity %q: must be one of High, Medium, Low", value),
		Details: map[string]string{"sensitivity": value},
	}
}

// UnsupportedEntityType reports an entity type other than Contact or Company.
func UnsupportedEntityType(value string) *Error {
	return &Error{
		Code:    CodeUnsupportedEntityType,
		Message: fmt.Sprintf("unsupported entity type %q: must be Contact or Company", value),
		Details: map[string]string{"entity_type": value},
	}
}

// EmptyFieldSet reports a scan request without any usable field.
func EmptyFieldSet() *Error {
	return &Error{Code: CodeEmptyFieldSet, Message: "at least one field is required"}
}

// InvalidMergeRequest creates an invalid merge request error.
func InvalidMergeRequest(msg string) *Error {
	return &Error{Code: CodeInvalidMergeRequest, Message: msg}
}

// InvalidMergeRequestf creates an invalid merge request error with formatted message.
func InvalidMergeRequestf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidMergeRequest, Message: fmt.Sprintf(format, args...)}
}

// RecordNotFound reports a merge participant missing from the record set.
// The result also matches ErrInvalidMergeRequest.
func RecordNotFound(recordID string) *Error {
	return &Error{
		Code:    CodeRecordNotFound,
		Message: fmt.Sprintf("record %s not found", recordID),
		Details: map[string]string{"record_id": recordID},
	}
}

// ScanCanceled wraps a context error that stopped a duplicate scan.
func ScanCanceled(err error) *Error {
	return &Error{Code: CodeScanCanceled, Message: "duplicate scan canceled", cause: err}
}
