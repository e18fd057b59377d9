package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeEvaluation ErrorType = "evaluation"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithFields adds one detail per field message
func (e *DomainError) WithFields(fields map[string]string) *DomainError {
	for field, msg := range fields {
		e.WithDetail(field, msg)
	}
	return e
}

// Derive returns a fresh error of the same type and message caused by err.
// Sentinels are never mutated; details go on the derived copy.
func (e *DomainError) Derive(err error) *DomainError {
	return NewDomainError(e.Type, e.Message, err)
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	ErrStatementNotFound = NewDomainError(ErrorTypeNotFound, "statement not found", nil)

	ErrInvalidStatement = NewDomainError(ErrorTypeValidation, "invalid statement", nil)
	ErrEmptyStatements  = NewDomainError(ErrorTypeValidation, "at least one statement is required", nil)
	ErrInvalidRequest   = NewDomainError(ErrorTypeValidation, "invalid authorisation request", nil)

	ErrMalformedExpression = NewDomainError(ErrorTypeEvaluation, "malformed condition expression", nil)
	ErrUnknownAttribute    = NewDomainError(ErrorTypeEvaluation, "unknown attribute path", nil)

	ErrDuplicateStatement = NewDomainError(ErrorTypeConflict, "statement already exists", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsEvaluationError checks if an error came from condition evaluation
func IsEvaluationError(err error) bool {
	return GetErrorType(err) == ErrorTypeEvaluation
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// NewEvaluationError builds an evaluation error for a condition expression
func NewEvaluationError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeEvaluation, message, err)
}

// NewNotFoundError builds a not found error naming the missing statement
func NewNotFoundError(id string) *DomainError {
	return ErrStatementNotFound.Derive(nil).WithDetail("id", id)
}

// NewConflictError builds a conflict error naming the duplicated statement
func NewConflictError(id string) *DomainError {
	return ErrDuplicateStatement.Derive(nil).WithDetail("id", id)
}
