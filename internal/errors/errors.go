// Package errors provides the coded error taxonomy used across Loom.
// Each error carries a stable code so callers can branch on failure kind
// without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeValidation indicates malformed project or stage configuration.
	CodeValidation Code = "VALIDATION"
	// CodeNotFound indicates an unknown project, task, or workflow id.
	CodeNotFound Code = "NOT_FOUND"
	// CodeTaskExecution indicates the model-execution collaborator failed
	// or timed out.
	CodeTaskExecution Code = "TASK_EXECUTION"
	// CodePersistence indicates a storage read or write failure.
	CodePersistence Code = "PERSISTENCE"
	// CodeWorkflowStage indicates a required sub-stage failed.
	CodeWorkflowStage Code = "WORKFLOW_STAGE"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is and errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error wrapping a cause.
// Returns nil if cause is nil.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the code of err, or "" if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsTaskExecution reports whether err is a task-execution error.
func IsTaskExecution(err error) bool { return CodeOf(err) == CodeTaskExecution }

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool { return CodeOf(err) == CodePersistence }

// IsWorkflowStage reports whether err is a workflow-stage error.
func IsWorkflowStage(err error) bool { return CodeOf(err) == CodeWorkflowStage }
