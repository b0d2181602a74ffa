package domain

import (
	"fmt"
	"time"
)

// AnalysisError represents a standardized error response
type AnalysisError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Err       error     `json:"-"`
}

// Error implements the error interface. Details carry the underlying
// cause, so they stay visible to callers that only see the string.
func (e *AnalysisError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrReportParsing  = "REPORT_PARSING_ERROR"
	ErrNotFound       = "NOT_FOUND"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrEncoderError   = "ENCODER_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NotFoundError indicates a requested resource does not exist
type NotFoundError struct {
	Resource string `json:"resource"`
	Key      string `json:"key"`
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// NewAnalysisError creates a new AnalysisError with timestamp
func NewAnalysisError(code, message, details, requestID string) *AnalysisError {
	return &AnalysisError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// WrapAnalysisError creates an AnalysisError that wraps an underlying cause.
func WrapAnalysisError(code, message string, err error) *AnalysisError {
	ae := NewAnalysisError(code, message, "", "")
	ae.Err = err
	if err != nil {
		ae.Details = err.Error()
	}
	return ae
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Key:      key,
	}
}
