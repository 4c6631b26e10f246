package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrShutdown is returned when work is submitted after Shutdown.
	ErrShutdown = errors.New("executor is shut down")
	// ErrQueueFull is returned by a fail-fast executor whose queue has no free slot.
	ErrQueueFull = errors.New("work queue is full")
	// ErrCancelled is returned by Get on a cancelled handle.
	ErrCancelled = errors.New("task was cancelled")
	// ErrTimeout is returned by Get when its deadline passes before the task finishes.
	ErrTimeout = errors.New("timed out waiting for task")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid executor config")
	// ErrNilTask is returned when a nil Task is submitted.
	ErrNilTask = errors.New("task must not be nil")
	// ErrNoTasks is returned by InvokeAny when given nothing to run.
	ErrNoTasks = errors.New("no tasks to invoke")
)

// TaskFailedError is returned by Get when the task body returned an error or panicked.
type TaskFailedError struct {
	TaskID uint64
	Cause  error
}

// Error implements the error interface
func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %d failed: %v", e.TaskID, e.Cause)
}

// Unwrap returns the error raised by the task body
func (e *TaskFailedError) Unwrap() error {
	return e.Cause
}

// PanicError records a panic recovered from a task body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}
