// Package errors provides custom error types and error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes.
const (
	// Per-query failures. Caught inside the runner, never fatal to a run.
	CodeCollaborator = "COLLABORATOR_ERROR"
	CodeSearchFn     = "SEARCH_FN_ERROR"
	CodeProtocol     = "PROTOCOL_ERROR"

	// Whole-operation failures.
	CodeAggregation = "AGGREGATION_ERROR"
	CodeComparison  = "COMPARISON_ERROR"

	// General errors.
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
	CodeInternal    = "INTERNAL_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// CollaboratorError creates an error for a failed judge call.
func CollaboratorError(message string, err error) *AppError {
	return Wrap(CodeCollaborator, message, err)
}

// SearchFnError creates an error for a failed user-supplied search function.
func SearchFnError(message string, err error) *AppError {
	return Wrap(CodeSearchFn, message, err)
}

// ProtocolError creates an error for a malformed judge response.
func ProtocolError(message string) *AppError {
	return New(CodeProtocol, message)
}

// AggregationError creates an error for a failed metric aggregation.
func AggregationError(message string) *AppError {
	return New(CodeAggregation, message)
}

// ComparisonError creates an error for a failed approach comparison.
func ComparisonError(message string) *AppError {
	return New(CodeComparison, message)
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// HasCode checks whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsCollaborator checks if error is a collaborator error.
func IsCollaborator(err error) bool { return HasCode(err, CodeCollaborator) }

// IsSearchFn checks if error is a search function error.
func IsSearchFn(err error) bool { return HasCode(err, CodeSearchFn) }

// IsProtocol checks if error is a protocol error.
func IsProtocol(err error) bool { return HasCode(err, CodeProtocol) }

// IsAggregation checks if error is an aggregation error.
func IsAggregation(err error) bool { return HasCode(err, CodeAggregation) }

// IsComparison checks if error is a comparison error.
func IsComparison(err error) bool { return HasCode(err, CodeComparison) }

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }
