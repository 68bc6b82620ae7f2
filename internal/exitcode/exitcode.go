// Package exitcode maps run outcomes to process exit codes so scripts can
// branch on what went wrong without parsing stderr.
package exitcode

import (
	goerrors "errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/adscope/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// PartialFailure indicates some hosts failed in an otherwise completed batch
	PartialFailure = 3

	// AuthError indicates an authentication or authorization failure
	AuthError = 4

	// NetworkError indicates an unreachable host or connectivity issue
	NetworkError = 5

	// TimeoutError indicates a task exceeded its deadline
	TimeoutError = 6

	// Interrupted indicates the run was cancelled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Classified failures map directly; everything else falls back to message
// matching for usage errors and then to GeneralError.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	// An error that knows its own code wins outright.
	var coded interface{ ExitCode() int }
	if goerrors.As(err, &coded) {
		return coded.ExitCode()
	}

	switch errors.Classify(err) {
	case errors.ClassTransportAuthFailure:
		return AuthError
	case errors.ClassUnreachableHost:
		return NetworkError
	case errors.ClassTimedOut:
		return TimeoutError
	case errors.ClassRemoteExecutionFailure, errors.ClassArtifactTransferFailure:
		return GeneralError
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "missing argument") {
		return UsageError
	}
	if strings.Contains(errMsg, "no target hosts") || strings.Contains(errMsg, "unknown scope") {
		return UsageError
	}

	return GeneralError
}

// ForBatch returns the code for a completed multi-host run: Success when
// every host succeeded, PartialFailure when some did, GeneralError when all
// failed.
func ForBatch(failed, total int) int {
	switch {
	case failed == 0:
		return Success
	case failed < total:
		return PartialFailure
	default:
		return GeneralError
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case PartialFailure:
		return "Partial failure (some hosts failed)"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case TimeoutError:
		return "Timeout"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
