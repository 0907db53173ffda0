// Package utils provides enhanced error handling utilities
// for better error management and debugging.
package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode represents predefined error codes for categorization
type ErrorCode string

const (
	// Driver related errors
	ErrCodeDriverFailed     ErrorCode = "DRIVER_FAILED"
	ErrCodeNavigationFailed ErrorCode = "NAVIGATION_FAILED"
	ErrCodeNoSuchElement    ErrorCode = "NO_SUCH_ELEMENT"
	ErrCodeSessionClosed    ErrorCode = "SESSION_CLOSED"
	ErrCodeFetchTimeout     ErrorCode = "FETCH_TIMEOUT"

	// Configuration related errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigSyntax  ErrorCode = "CONFIG_SYNTAX"

	// Document related errors
	ErrCodeParsingError    ErrorCode = "PARSING_ERROR"
	ErrCodeInvalidSelector ErrorCode = "INVALID_SELECTOR"

	// Report related errors
	ErrCodeReportFailed   ErrorCode = "REPORT_FAILED"
	ErrCodeFilePermission ErrorCode = "FILE_PERMISSION"
	ErrCodeDatabaseError  ErrorCode = "DATABASE_ERROR"

	// System related errors
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	ErrCodeContextCanceled   ErrorCode = "CONTEXT_CANCELED"

	// Generic errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnknown    ErrorCode = "UNKNOWN_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
)

// StructuredError provides rich error information for better debugging and handling
type StructuredError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Severity    ErrorSeverity          `json:"severity"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Cause       error                  `json:"-"` // Original error
	Timestamp   time.Time              `json:"timestamp"`
	StackTrace  []string               `json:"stack_trace,omitempty"`
	Retryable   bool                   `json:"retryable"`
	UserMessage string                 `json:"user_message,omitempty"`
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target error code
func (e *StructuredError) Is(target error) bool {
	if se, ok := target.(*StructuredError); ok {
		return e.Code == se.Code
	}
	return false
}

// WithContext adds contextual information to the error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithUserMessage sets a user-friendly error message
func (e *StructuredError) WithUserMessage(message string) *StructuredError {
	e.UserMessage = message
	return e
}

// ErrorBuilder provides a fluent interface for creating structured errors
type ErrorBuilder struct {
	error           *StructuredError
	stackTraceDepth int
}

// ErrorConfig holds configuration for error handling
type ErrorConfig struct {
	StackTraceDepth  int  // Number of stack frames to capture (default: 15)
	EnableStackTrace bool // Whether to capture stack traces (default: true)
}

// DefaultErrorConfig returns the default error configuration
func DefaultErrorConfig() *ErrorConfig {
	return &ErrorConfig{
		StackTraceDepth:  15,
		EnableStackTrace: true,
	}
}

// NewError creates a new error builder with default configuration
func NewError(code ErrorCode, message string) *ErrorBuilder {
	return NewErrorWithConfig(code, message, nil)
}

// NewErrorWithConfig creates a new error builder with custom configuration
func NewErrorWithConfig(code ErrorCode, message string, config *ErrorConfig) *ErrorBuilder {
	if config == nil {
		config = DefaultErrorConfig()
	}

	builder := &ErrorBuilder{
		error: &StructuredError{
			Code:      code,
			Message:   message,
			Severity:  SeverityError,
			Timestamp: time.Now(),
			Retryable: false,
		},
		stackTraceDepth: config.StackTraceDepth,
	}

	if config.EnableStackTrace {
		builder.error.StackTrace = captureStackTrace(config.StackTraceDepth)
	}

	return builder
}

// WithSeverity sets the error severity
func (eb *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	eb.error.Severity = severity
	return eb
}

// WithCause sets the underlying cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.error.Cause = cause
	return eb
}

// WithContext adds contextual information
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	if eb.error.Context == nil {
		eb.error.Context = make(map[string]interface{})
	}
	eb.error.Context[key] = value
	return eb
}

// WithRetryable marks the error as retryable
func (eb *ErrorBuilder) WithRetryable(retryable bool) *ErrorBuilder {
	eb.error.Retryable = retryable
	return eb
}

// WithUserMessage sets a user-friendly message
func (eb *ErrorBuilder) WithUserMessage(message string) *ErrorBuilder {
	eb.error.UserMessage = message
	return eb
}

// WithoutStackTrace disables stack trace capture for this error
func (eb *ErrorBuilder) WithoutStackTrace() *ErrorBuilder {
	eb.error.StackTrace = nil
	return eb
}

// Build returns the constructed error
func (eb *ErrorBuilder) Build() *StructuredError {
	return eb.error
}

// Helper functions

// captureStackTrace captures the current stack trace with the given depth
func captureStackTrace(depth int) []string {
	if depth <= 0 {
		return nil
	}

	var stack []string
	frameCount := 0
	for i := 2; frameCount < depth; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		funcName := "unknown"
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcName = fn.Name()
		}

		stack = append(stack, fmt.Sprintf("%s:%d (%s)", shortenFilePath(file), line, shortenFuncName(funcName)))
		frameCount++
	}

	return stack
}

// shortenFilePath shortens file paths for better readability
func shortenFilePath(filePath string) string {
	parts := strings.Split(filePath, "/")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return filePath
}

// shortenFuncName shortens function names for better readability
func shortenFuncName(funcName string) string {
	parts := strings.Split(funcName, "/")
	if len(parts) > 0 {
		lastPart := parts[len(parts)-1]
		if dotIndex := strings.LastIndex(lastPart, "."); dotIndex != -1 && dotIndex < len(lastPart)-1 {
			return lastPart[dotIndex+1:]
		}
		return lastPart
	}
	return funcName
}

// IsRetryableError checks if an error should be retried
func IsRetryableError(err error) bool {
	if structErr, ok := err.(*StructuredError); ok {
		return structErr.Retryable
	}

	// Check for common retryable error patterns from report sinks
	errorStr := err.Error()
	retryablePatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"too many connections",
		"database is locked",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(strings.ToLower(errorStr), pattern) {
			return true
		}
	}

	return false
}

// WrapError wraps an existing error in a structured error
func WrapError(err error, code ErrorCode, message string) *StructuredError {
	return NewError(code, message).WithCause(err).Build()
}

// IsTemporaryError checks if an error is temporary
func IsTemporaryError(err error) bool {
	if temp, ok := err.(interface{ Temporary() bool }); ok {
		return temp.Temporary()
	}
	return IsRetryableError(err)
}

// GetUserFriendlyMessage extracts a user-friendly message from an error
func GetUserFriendlyMessage(err error) string {
	if structErr, ok := err.(*StructuredError); ok && structErr.UserMessage != "" {
		return structErr.UserMessage
	}

	// Provide default user-friendly messages for common error codes
	if structErr, ok := err.(*StructuredError); ok {
		switch structErr.Code {
		case ErrCodeNavigationFailed:
			return "The page could not be loaded. Please check the URL and your network connection."
		case ErrCodeNoSuchElement:
			return "The expected element was not found on the page. The page structure may have changed."
		case ErrCodeDriverFailed:
			return "The browser did not respond. Check that Chrome is installed and reachable."
		case ErrCodeReportFailed:
			return "Failed to write the check report. Please check permissions and sink availability."
		case ErrCodeInvalidConfig:
			return "The suite configuration is invalid. Please review the reported fields."
		default:
			return "An unexpected error occurred. Please try again or contact support if the problem persists."
		}
	}

	return "An error occurred. Please try again."
}
