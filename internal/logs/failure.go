package logs

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Failure categories for source errors
const (
	FailureTimeout        = "timeout"
	FailureMissingCommand = "missing_command"
	FailurePermission     = "permission"
	FailureNetwork        = "network"
	FailureProtocol       = "protocol"
	FailureUnknown        = "unknown"
)

// CategorizeError analyzes a source error and returns its category and hints
func CategorizeError(err error) (string, []string) {
	if err == nil {
		return FailureUnknown, []string{"No error details available"}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout, []string{
			"Raise command-timeout in the configuration",
			"Check that the command does not wait for input",
		}
	}

	errStr := strings.ToLower(err.Error())

	// Timeout errors
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return FailureTimeout, []string{
			"Raise command-timeout in the configuration",
			"Check that the command does not wait for input",
		}
	}

	// Missing binaries or files
	if strings.Contains(errStr, "command not found") ||
		strings.Contains(errStr, "executable file not found") ||
		strings.Contains(errStr, "no such file") ||
		strings.Contains(errStr, "exit status 127") {
		return FailureMissingCommand, []string{
			"Install the client (e.g. mpc) and make sure it is in PATH",
			"Verify the configured command or file path",
		}
	}

	// Permission errors
	if strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "access denied") {
		return FailurePermission, []string{
			"Check file permissions of the script or sysfs entry",
			"Make sure the script is executable",
		}
	}

	// mpd unreachable
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "unknown host") ||
		strings.Contains(errStr, "network") {
		return FailureNetwork, []string{
			"Check that the music daemon is running and music.host is correct",
			"Verify network connectivity to the music host",
		}
	}

	// Output we could not parse
	if strings.Contains(errStr, "unexpected output") ||
		strings.Contains(errStr, "no match") {
		return FailureProtocol, []string{
			"Run the command by hand and compare its output with the expected format",
		}
	}

	return FailureUnknown, []string{"Run the command by hand to see its output"}
}

// FailureFields returns the zap fields attached to every logged source failure
func FailureFields(source string, err error) []zap.Field {
	kind, hints := CategorizeError(err)
	return []zap.Field{
		zap.String("source", source),
		zap.String("error_type", kind),
		zap.Strings("suggestions", hints),
		zap.Error(err),
	}
}
