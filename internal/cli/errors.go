package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/msageha/buildq/internal/queue"
)

const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitFailure = 2
)

// UsageError marks a bad invocation: missing flags, unknown arguments, or
// values that fail validation. No file is touched when one is returned.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) || errors.Is(err, queue.ErrValidation) {
		return ExitUsage
	}
	// cobra reports unknown subcommands as plain errors
	if strings.HasPrefix(err.Error(), "unknown command") {
		return ExitUsage
	}
	return ExitFailure
}
