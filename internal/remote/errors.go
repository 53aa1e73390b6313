package remote

import (
	"context"
	"errors"
	"fmt"
)

// stderrLimit bounds how much remote stderr is kept in a CommandError
const stderrLimit = 8 << 10 // 8 KiB

// ErrTimeout is returned when a remote command exceeds its time bound.
// Errors wrapping it also match context.DeadlineExceeded.
var ErrTimeout = errors.New("remote command timed out")

// TransportError reports that the SSH session could not be established
type TransportError struct {
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ssh transport to %s: %v", e.Host, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CommandError reports a remote command that exited with a non-zero status
type CommandError struct {
	ExitCode int
	Stderr   string
	// Stdout is kept for tools that use the exit status as a bitmask
	// and still print a usable report (smartctl).
	Stdout string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("remote command exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("remote command exited with status %d: %s", e.ExitCode, e.Stderr)
}

// Error classes reported by Classify
const (
	ClassTransport     = "transport"
	ClassTimeout       = "timeout"
	ClassCommandFailed = "command_failed"
	ClassParse         = "parse"
	ClassUnknown       = "unknown"
)

// classifier is implemented by errors from other packages that belong to the taxonomy
type classifier interface {
	ErrorClass() string
}

// Classify maps an error onto the short class names used in logs and diagnostics
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var (
		te *TransportError
		ce *CommandError
		cl classifier
	)
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.As(err, &te):
		return ClassTransport
	case errors.As(err, &ce):
		return ClassCommandFailed
	case errors.As(err, &cl):
		return cl.ErrorClass()
	}
	return ClassUnknown
}

func truncate(s string) string {
	if len(s) > stderrLimit {
		return s[:stderrLimit] + "… (truncated)"
	}
	return s
}
