package activate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEngineNotFound means neither the configured engine binary nor its
// compose plugin could be run.
var ErrEngineNotFound = errors.New("container engine not found")

// CommandError is a failed engine invocation with its stderr.
type CommandError struct {
	Command  string
	ExitCode int // -1 when the process never ran to completion
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, lastLines(e.Stderr, 5))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// lastLines keeps the tail of noisy build output.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
