// Package errors provides structured error types for bpdoc.
//
// Every package reports failures through a coded [Error] so that callers can
// decide whether a failure is scoped to one asset, one reference, one
// thumbnail, or the whole generation run without matching on message text.
//
// # Error Codes
//
// Codes follow a category naming convention:
//   - INVALID_*: input and configuration validation failures
//   - MALFORMED_*: problems inside a single source asset
//   - *_UNAVAILABLE / *_FAILED: collaborator failures (sink, enumerator, renderer)
//   - INTERNAL: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedGraph, "node %q listed twice", id)
//	if errors.Is(err, errors.ErrCodeMalformedGraph) {
//	    // skip the asset
//	}
//
//	err := errors.Wrap(errors.ErrCodeSinkUnavailable, cause, "write %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Per-asset errors
	ErrCodeMalformedGraph Code = "MALFORMED_GRAPH"

	// Registry errors
	ErrCodeDuplicateEntity     Code = "DUPLICATE_ENTITY"
	ErrCodeUnresolvedReference Code = "UNRESOLVED_REFERENCE"
	ErrCodeNotFound            Code = "NOT_FOUND"

	// Collaborator errors
	ErrCodeRenderFailed     Code = "RENDER_FAILED"
	ErrCodeSinkUnavailable  Code = "SINK_UNAVAILABLE"
	ErrCodeEnumeratorFailed Code = "ENUMERATOR_FAILED"
	ErrCodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	ErrCodeInternal         Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// Only the outermost *Error in the chain is consulted, so a sink failure
// wrapping a timeout still reports as a sink failure.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsRunFatal reports whether err should abort a generation run rather than
// being recorded against a single asset, reference, or thumbnail.
func IsRunFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeSinkUnavailable, ErrCodeEnumeratorFailed, ErrCodeInvalidConfig,
		ErrCodeUnresolvedReference, ErrCodeStoreUnavailable, ErrCodeInternal:
		return true
	}
	return false
}
