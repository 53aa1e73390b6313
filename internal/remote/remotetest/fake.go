// Package remotetest provides a scripted remote.Executor for tests.
package remotetest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sigreer/perccli-exporter/internal/remote"
)

// Response is the scripted result of one command
type Response struct {
	Out string
	Err error
}

// Executor answers commands from a fixed table. Unknown commands fail with
// exit status 127, like a missing binary would.
type Executor struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
}

// NewExecutor returns an Executor answering with the scripted responses
func NewExecutor(responses map[string]Response) *Executor {
	return &Executor{responses: responses}
}

// Execute records command and returns its scripted response
func (e *Executor) Execute(ctx context.Context, command string, timeout time.Duration) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, command)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r, ok := e.responses[command]
	if !ok {
		return "", &remote.CommandError{ExitCode: 127, Stderr: "sh: not found"}
	}
	return r.Out, r.Err
}

// Calls returns the executed commands in order
func (e *Executor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}
