package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/maxkimambo/taskpool/internal/executor"
)

// Common error codes
const (
	// Configuration error codes
	CodeConfigInvalid = "001"
	CodeConfigFile    = "002"
	CodeConfigEnv     = "003"

	// Validation error codes
	CodeValidationInput    = "001"
	CodeValidationWorkload = "002"

	// Execution error codes
	CodeExecutionRejected = "001"
	CodeExecutionShutdown = "002"
	CodeExecutionTimeout  = "003"
	CodeExecutionCancel   = "004"
	CodeExecutionPanic    = "005"

	// Workload error codes
	CodeWorkloadFailed = "001"
)

// NewInvalidSettingError reports a setting outside its allowed range.
func NewInvalidSettingError(setting string, value interface{}, reason string) *TaskpoolError {
	return NewConfigurationError(CodeConfigInvalid,
		fmt.Sprintf("Invalid value %v for %s: %s", value, setting, reason),
		"Configuration validation").
		WithContext("setting", setting).
		WithContext("value", value).
		WithTroubleshooting(
			"Check the flag, environment variable or config file entry for this setting",
			"Run 'taskpool run --help' to see accepted values",
		)
}

// NewConfigFileError reports a config file that cannot be read or parsed.
func NewConfigFileError(path string, originalErr error) *TaskpoolError {
	return NewConfigurationError(CodeConfigFile,
		fmt.Sprintf("Failed to load config file '%s'", path),
		"Configuration loading").
		WithContext("path", path).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Verify the file exists and is readable",
			"Config files must be YAML (.yaml, .yml) or JSON (.json)",
		)
}

// NewEnvVarError reports an environment variable that cannot be parsed.
func NewEnvVarError(name, value string, originalErr error) *TaskpoolError {
	return NewConfigurationError(CodeConfigEnv,
		fmt.Sprintf("Cannot parse %s=%q", name, value),
		"Configuration loading").
		WithContext("variable", name).
		WithOriginalError(originalErr).
		WithTroubleshooting(fmt.Sprintf("Unset %s or give it a valid value", name))
}

// NewInputValidationError reports unusable workload input.
func NewInputValidationError(workload, message string) *TaskpoolError {
	return NewValidationError(CodeValidationInput, message, fmt.Sprintf("Validating %s input", workload)).
		WithContext("workload", workload)
}

// NewUnknownWorkloadError reports a workload name that is not registered.
func NewUnknownWorkloadError(name string, known []string) *TaskpoolError {
	return NewValidationError(CodeValidationWorkload,
		fmt.Sprintf("Unknown workload '%s'", name),
		"Workload selection").
		WithContext("workload", name).
		WithTroubleshooting(fmt.Sprintf("Choose one of: %v", known))
}

// NewTaskTimeoutError reports a result that did not arrive in time.
func NewTaskTimeoutError(operation string, originalErr error) *TaskpoolError {
	return NewExecutionError(CodeExecutionTimeout, "Timed out waiting for task result", operation).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Increase --result-timeout or the number of workers",
			"The task keeps running; cancel it explicitly if its result is no longer needed",
		)
}

// FromExecutor wraps an error returned by the executor package in a
// structured error. Errors that are already structured, and nil, are
// returned unchanged.
func FromExecutor(err error, operation string) error {
	if err == nil {
		return nil
	}
	var tpErr *TaskpoolError
	if stderrors.As(err, &tpErr) {
		return err
	}

	var panicErr *executor.PanicError
	var failed *executor.TaskFailedError

	switch {
	case stderrors.Is(err, executor.ErrQueueFull):
		return NewExecutionError(CodeExecutionRejected, "Task rejected: work queue is full", operation).
			WithOriginalError(err).
			WithTroubleshooting(
				"Increase --queue-capacity or use --policy block",
				"Add workers with --workers so the queue drains faster",
			)
	case stderrors.Is(err, executor.ErrShutdown):
		return NewExecutionError(CodeExecutionShutdown, "Executor is shut down", operation).
			WithOriginalError(err)
	case stderrors.Is(err, executor.ErrTimeout):
		return NewTaskTimeoutError(operation, err)
	case stderrors.Is(err, executor.ErrCancelled):
		return NewExecutionError(CodeExecutionCancel, "Task was cancelled before it ran", operation).
			WithOriginalError(err)
	case stderrors.Is(err, executor.ErrInvalidConfig):
		return NewConfigurationError(CodeConfigInvalid, "Invalid executor configuration", operation).
			WithOriginalError(err)
	case stderrors.As(err, &panicErr):
		return NewExecutionError(CodeExecutionPanic, "Task panicked", operation).
			WithContext("panic", panicErr.Value).
			WithOriginalError(err)
	case stderrors.As(err, &failed):
		return NewWorkloadError(CodeWorkloadFailed, "Task failed", operation).
			WithContext("task_id", failed.TaskID).
			WithOriginalError(failed.Cause)
	}
	return err
}
