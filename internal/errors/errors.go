package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/tminus/internal/logger"
)

var (
	// ErrParse is returned when a stored target does not match the wire format.
	ErrParse = stderrors.New("malformed target time")
	// ErrStoreUnavailable is returned when the shared store cannot be reached.
	ErrStoreUnavailable = stderrors.New("shared store unavailable")
	// ErrStoreWrite is returned when a new target could not be written.
	ErrStoreWrite = stderrors.New("failed to write target")
	// ErrSubscriptionCancelled is delivered to listeners when live updates stop.
	ErrSubscriptionCancelled = stderrors.New("subscription cancelled")
	// ErrNotLoaded is returned by stores used before Init or Load.
	ErrNotLoaded = stderrors.New("storage not loaded")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
