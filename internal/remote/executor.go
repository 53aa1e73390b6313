package remote

import (
	"context"
	"strings"
	"time"
)

// Executor runs a single command on a remote host.
// Implementations make exactly one attempt per call; retry policy belongs to the caller.
type Executor interface {
	Execute(ctx context.Context, command string, timeout time.Duration) (string, error)
}

// ShellQuote quotes s for a POSIX shell (busybox ash on ESXi included)
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Command joins an executable and its arguments into a quoted command line
func Command(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, ShellQuote(name))
	for _, a := range args {
		parts = append(parts, ShellQuote(a))
	}
	return strings.Join(parts, " ")
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("/-_.,:=@%+", r)
}
