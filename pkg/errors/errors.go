// Package errors provides structured error types for the insights server.
//
// Store and pipeline failures are wrapped in AppError so that function
// wrappers can log a stable code and decide on retry behaviour.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error identifier for categorization.
type ErrorCode string

const (
	// User errors
	CodeUserNotFound ErrorCode = "USER_NOT_FOUND"

	// Analytics errors
	CodeNoWorkoutData ErrorCode = "NO_WORKOUT_DATA"

	// Infrastructure errors
	CodeStorageError ErrorCode = "STORAGE_ERROR"

	// General errors
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
	CodeTimeoutError    ErrorCode = "TIMEOUT_ERROR"
)

// AppError is the base error type.
type AppError struct {
	Code      ErrorCode         // Unique error code for categorization
	Message   string            // Human-readable error message
	Cause     error             // Underlying error (if any)
	Retryable bool              // Whether the operation can be retried
	Metadata  map[string]string // Additional context
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so that wrapped sentinels compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	return &AppError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMessage adds a custom message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:      e.Code,
		Message:   msg,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMetadata adds contextual metadata.
func (e *AppError) WithMetadata(key, value string) *AppError {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	return &AppError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  meta,
	}
}

// Sentinels. Use with errors.Is() or derive with .WithCause().
var (
	ErrUserNotFound  = &AppError{Code: CodeUserNotFound, Message: "user not found", Retryable: false}
	ErrNoWorkoutData = &AppError{Code: CodeNoWorkoutData, Message: "No workout data available for analysis", Retryable: false}

	ErrStorageError = &AppError{Code: CodeStorageError, Message: "storage error", Retryable: true}

	ErrValidation = &AppError{Code: CodeValidationError, Message: "validation error", Retryable: false}
	ErrInternal   = &AppError{Code: CodeInternalError, Message: "internal error", Retryable: false}
	ErrTimeout    = &AppError{Code: CodeTimeoutError, Message: "timeout", Retryable: true}
)

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetCode extracts the error code from an error, if available.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}
