// Package errors provides error types and handling for gantry.
// It includes typed lifecycle errors with error codes so the CLI can name
// the exact resource, stage, or config field at fault.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined error codes.
const (
	ErrCodeMissingConfig     = "MISSING_CONFIG"
	ErrCodeUnknownStage      = "UNKNOWN_STAGE"
	ErrCodeConflict          = "CONFLICT"
	ErrCodePartialDeployment = "PARTIAL_DEPLOYMENT"
	ErrCodeRemoteAPI         = "REMOTE_API"
	ErrCodeLocalEnvironment  = "LOCAL_ENVIRONMENT"
)

// AppError represents an application error with an associated error code.
type AppError struct {
	// Code is an error code string for programmatic handling
	Code string
	// Message is a user-friendly error message
	Message string
	// Cause is the underlying error (for error wrapping)
	Cause error
	// Transient marks errors that may succeed on retry (rate limits,
	// network failures). Conflicts and authorization failures are never
	// transient.
	Transient bool
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to work with AppError.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code != "" && e.Code == t.Code
	}
	return false
}

// MissingConfig creates an error for a required config field that could not
// be resolved from flags, environment, or the config file.
func MissingConfig(field string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("required config field %q is not set", field),
	}
}

// UnknownStage creates an error for a stage name absent from the stages
// mapping. Raised at config resolution, before any remote call.
func UnknownStage(stage string, known []string) *AppError {
	msg := fmt.Sprintf("stage %q is not defined in config", stage)
	if len(known) > 0 {
		msg += fmt.Sprintf(" (known stages: %s)", strings.Join(known, ", "))
	}
	return &AppError{Code: ErrCodeUnknownStage, Message: msg}
}

// Conflict creates an error for a resource that already exists remotely when
// a deploy runs without --force.
func Conflict(kind, name string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf("%s %q already exists; re-run with --force to overwrite", kind, name),
		Cause:   cause,
	}
}

// RemoteAPI creates an error for a failed provider API call.
func RemoteAPI(message string, cause error, transient bool) *AppError {
	return &AppError{
		Code:      ErrCodeRemoteAPI,
		Message:   message,
		Cause:     cause,
		Transient: transient,
	}
}

// LocalEnvironment creates an error for a missing local file or command.
func LocalEnvironment(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeLocalEnvironment,
		Message: message,
		Cause:   cause,
	}
}

// PartialDeploymentError reports a deploy that failed mid-plan. Applied
// lists every plan entry that succeeded before the failure so a caller can
// re-run safely or investigate.
type PartialDeploymentError struct {
	// Applied holds human-readable descriptions of the applied plan
	// entries, in application order.
	Applied []string
	// Failed names the plan entry that failed.
	Failed string
	// Cause is the error that halted the plan.
	Cause error
}

func (e *PartialDeploymentError) Error() string {
	if len(e.Applied) == 0 {
		return fmt.Sprintf("deployment failed at %s: %v (nothing was applied)", e.Failed, e.Cause)
	}
	return fmt.Sprintf("deployment failed at %s: %v (applied: %s)",
		e.Failed, e.Cause, strings.Join(e.Applied, ", "))
}

func (e *PartialDeploymentError) Unwrap() error {
	return e.Cause
}

// GetErrorCode extracts the error code from an error.
// Returns empty string if the error is not an AppError.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var partial *PartialDeploymentError
	if errors.As(err, &partial) {
		return ErrCodePartialDeployment
	}
	return ""
}

// IsTransient reports whether an error is worth retrying.
func IsTransient(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Transient
	}
	return false
}

// IsConflict reports whether an error is a resource conflict.
func IsConflict(err error) bool {
	return GetErrorCode(err) == ErrCodeConflict
}
