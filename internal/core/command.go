package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandResult contains the output from running an external command
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner executes short-lived external commands with a timeout
type CommandRunner struct {
	timeout time.Duration
}

// NewCommandRunner creates a new command runner with the given timeout
func NewCommandRunner(timeout time.Duration) *CommandRunner {
	return &CommandRunner{timeout: timeout}
}

// Run executes name with args and returns its output
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	result := &CommandResult{}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 100 * time.Millisecond // Allow graceful shutdown after context cancel

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("command timed out after %v: %s", r.timeout, name)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("command failed with exit code %d: %s", result.ExitCode, name)
		}
		return result, fmt.Errorf("running %s: %w", name, err)
	}

	return result, nil
}

// FirstLine returns the first non-empty line of stdout, trimmed
func (r *CommandResult) FirstLine() string {
	for _, line := range strings.Split(r.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
