package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: config_key_missing, session_not_created, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError of the same kind.
// Kinds are compared by Code, so copies made with the With* helpers
// still match the predefined sentinels.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok || t.Code == "" {
		return false
	}
	for code := e.Code; code != ""; code = parentCodes[code] {
		if code == t.Code {
			return true
		}
	}
	return false
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Detail returns a detail value as a string, or "" when unset.
func (e *ExecutionError) Detail(key string) string {
	v, ok := e.Details[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// parentCodes lets a specific kind also match a broader one.
var parentCodes = map[string]string{
	"driver_teardown": "driver_error",
}

// Predefined errors
var (
	// Config errors
	ErrConfigNotFound = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "config_not_found",
		Message:  "configuration file not found",
	}
	ErrConfigKeyMissing = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "config_key_missing",
		Message:  "missing configuration key",
	}
	ErrConfigInvalid = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "config_invalid",
		Message:  "invalid configuration",
	}
	ErrUnsupportedBrowser = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_browser",
		Message:  "unsupported browser",
	}

	// Session errors
	ErrSessionNotCreated = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "session_not_created",
		Message:  "session could not be created",
	}
	ErrDriverError = &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "driver_error",
		Message:  "driver error",
	}
	ErrDriverTeardown = &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "driver_teardown",
		Message:  "failed to quit driver",
	}
	ErrUnexpectedDriver = &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "unexpected_driver_error",
		Message:  "unexpected driver error",
	}
	ErrSessionActive = &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "session_active",
		Message:  "a session is already active",
	}

	// Page errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
