package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

func asTaskpoolError(err error) (*TaskpoolError, bool) {
	var tpErr *TaskpoolError
	ok := stderrors.As(err, &tpErr)
	return tpErr, ok
}

// FormatForCLI formats an error for command-line display with proper spacing
func FormatForCLI(err error) string {
	tpErr, ok := asTaskpoolError(err)
	if !ok {
		return fmt.Sprintf("\nError: %v\n", err)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s Error [%s-%s]\n", categoryTitle(tpErr.Category), tpErr.Category, tpErr.Code)
	fmt.Fprintf(&sb, "  %s\n", tpErr.Message)

	if tpErr.Operation != "" {
		fmt.Fprintf(&sb, "\nFailed Operation: %s\n", tpErr.Operation)
	}

	if len(tpErr.Context) > 0 {
		sb.WriteString("\nDetails:\n")
		for _, key := range tpErr.contextKeys() {
			fmt.Fprintf(&sb, "  %s: %v\n", key, tpErr.Context[key])
		}
	}

	if len(tpErr.Troubleshooting) > 0 {
		sb.WriteString("\nHow to resolve:\n")
		for i, step := range tpErr.Troubleshooting {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
		}
	}

	if tpErr.OriginalError != nil {
		fmt.Fprintf(&sb, "\nTechnical details: %v\n", tpErr.OriginalError)
	}

	return sb.String()
}

func categoryTitle(c ErrorCategory) string {
	switch c {
	case ErrorCategoryConfiguration:
		return "Configuration"
	case ErrorCategoryValidation:
		return "Validation"
	case ErrorCategoryExecution:
		return "Execution"
	case ErrorCategoryWorkload:
		return "Workload"
	}
	return string(c)
}

// IsUserError determines if an error is due to user input/configuration
func IsUserError(err error) bool {
	if tpErr, ok := asTaskpoolError(err); ok {
		return tpErr.Category == ErrorCategoryValidation ||
			tpErr.Category == ErrorCategoryConfiguration
	}
	return false
}

// GetErrorCode extracts the error code for reporting
func GetErrorCode(err error) string {
	if tpErr, ok := asTaskpoolError(err); ok {
		return fmt.Sprintf("%s-%s", tpErr.Category, tpErr.Code)
	}
	return "UNKNOWN"
}

// ExitCode maps an error to a process exit status: 0 for nil, 2 for user
// errors and 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsUserError(err):
		return 2
	default:
		return 1
	}
}
