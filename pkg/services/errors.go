// Package services provides the workflow and execution services behind the HTTP API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowgraph/pkg/validation"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidStatus   = errors.New("invalid workflow status")
	ErrWorkflowNil     = errors.New("workflow cannot be nil")
	ErrInvalidWorkflow = errors.New("invalid workflow graph")
	ErrInvalidPayload  = errors.New("payload does not match the trigger schema")

	// Business Logic Conflicts (409 Conflict).
	ErrWorkflowNotActive = errors.New("workflow is not active")

	// Missing resources (404 Not Found).
	ErrExecutionNotRunning = errors.New("execution not found or not running")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ValidationError carries the graph validation report that rejected a workflow.
type ValidationError struct {
	Op     string
	Result validation.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v: %d errors", e.Op, ErrInvalidWorkflow, len(e.Result.Errors))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidWorkflow
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrInvalidWorkflow) ||
		errors.Is(err, ErrInvalidPayload)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowNotActive)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
