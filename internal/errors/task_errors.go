package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryConfiguration covers config files, flags and environment
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	// ErrorCategoryValidation covers bad workload input
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	// ErrorCategoryExecution covers rejected, cancelled and timed out tasks
	ErrorCategoryExecution ErrorCategory = "EXECUTION"
	// ErrorCategoryWorkload covers failures raised by task bodies
	ErrorCategoryWorkload ErrorCategory = "WORKLOAD"
)

// TaskpoolError is a structured error with context and troubleshooting
// steps, rendered by FormatForCLI.
type TaskpoolError struct {
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	OriginalError   error
}

// Error implements the error interface
func (e *TaskpoolError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s-%s: %s", e.Category, e.Code, e.Message)

	if e.Operation != "" {
		fmt.Fprintf(&sb, "\nOperation: %s", e.Operation)
	}

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for _, key := range e.contextKeys() {
			fmt.Fprintf(&sb, "\n  %s: %v", key, e.Context[key])
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			fmt.Fprintf(&sb, "\n  %d. %s", i+1, step)
		}
	}

	if e.OriginalError != nil {
		fmt.Fprintf(&sb, "\nUnderlying error: %v", e.OriginalError)
	}

	return sb.String()
}

// Unwrap returns the original error for error chain compatibility
func (e *TaskpoolError) Unwrap() error {
	return e.OriginalError
}

func (e *TaskpoolError) contextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewTaskpoolError creates a new structured error
func NewTaskpoolError(category ErrorCategory, code, message, operation string) *TaskpoolError {
	return &TaskpoolError{
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *TaskpoolError) WithContext(key string, value interface{}) *TaskpoolError {
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *TaskpoolError) WithTroubleshooting(steps ...string) *TaskpoolError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError records the cause
func (e *TaskpoolError) WithOriginalError(err error) *TaskpoolError {
	e.OriginalError = err
	return e
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(code, message, operation string) *TaskpoolError {
	return NewTaskpoolError(ErrorCategoryConfiguration, code, message, operation)
}

// NewValidationError creates a new validation error
func NewValidationError(code, message, operation string) *TaskpoolError {
	return NewTaskpoolError(ErrorCategoryValidation, code, message, operation)
}

// NewExecutionError creates a new execution error
func NewExecutionError(code, message, operation string) *TaskpoolError {
	return NewTaskpoolError(ErrorCategoryExecution, code, message, operation)
}

// NewWorkloadError creates a new workload error
func NewWorkloadError(code, message, operation string) *TaskpoolError {
	return NewTaskpoolError(ErrorCategoryWorkload, code, message, operation)
}
