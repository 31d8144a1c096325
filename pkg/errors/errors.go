// Package errors provides structured error types for the phrasetower
// application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the pipeline
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// The graph engine itself reports sentinel errors (see package graph); this
// package classifies them at the application boundary.
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND_*: Resource not found
//   - STORAGE_*: Persistence failures
//   - BUILD_*: Hierarchy build failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidTokens, "item %d has no tokens", id)
//	if errors.Is(err, errors.ErrCodeInvalidTokens) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "failed to save %s", path)
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
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"
	ErrCodeInvalidTokens   Code = "INVALID_TOKENS"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeElementNotFound Code = "ELEMENT_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Persistence errors
	ErrCodeStorage        Code = "STORAGE_ERROR"
	ErrCodeStorageCorrupt Code = "STORAGE_CORRUPT"

	// Build errors
	ErrCodeBuildFailed    Code = "BUILD_FAILED"
	ErrCodeBuildCancelled Code = "BUILD_CANCELLED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
// It unwraps the error chain looking for an *Error with a matching code.
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

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// BuildFailedError summarises a build pass in which some insertions failed.
// The pass itself completed; failed elements stay pending.
type BuildFailedError struct {
	Failed    int // Number of elements whose insertion failed
	Attempted int // Number of elements the pass tried to insert
	First     error
}

// Error implements the error interface.
func (e *BuildFailedError) Error() string {
	if e.First != nil {
		return fmt.Sprintf("build failed for %d of %d elements: %v", e.Failed, e.Attempted, e.First)
	}
	return fmt.Sprintf("build failed for %d of %d elements", e.Failed, e.Attempted)
}

// Unwrap returns the first insertion error.
func (e *BuildFailedError) Unwrap() error {
	return e.First
}

// Code returns the error code for this error type.
func (e *BuildFailedError) Code() Code {
	return ErrCodeBuildFailed
}
