// Package exec runs external commands with captured output.
package exec

//go:generate mockgen -source=command.go -destination=command_mock.go -package=exec

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
)

// CommandResult contains the result of a command execution.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Success reports whether the command ran and exited with status 0.
func (r *CommandResult) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Failed is the negation of Success.
func (r *CommandResult) Failed() bool {
	return !r.Success()
}

// CommandRunner executes external commands with timeout and output capture.
type CommandRunner interface {
	// Run executes a command and returns the result.
	Run(ctx context.Context, name string, args ...string) *CommandResult

	// RunWithStdin executes a command with stdin input.
	RunWithStdin(ctx context.Context, stdin io.Reader, name string, args ...string) *CommandResult

	// RunWithTimeout executes a command bounded by timeout on top of ctx.
	RunWithTimeout(ctx context.Context, timeout time.Duration, name string, args ...string) *CommandResult
}

type commandRunner struct {
	defaultTimeout time.Duration
}

// NewCommandRunner creates a CommandRunner. A positive defaultTimeout bounds
// every Run and RunWithStdin call.
//
//nolint:ireturn // constructor for the interface mocked in tests
func NewCommandRunner(defaultTimeout time.Duration) CommandRunner {
	return &commandRunner{defaultTimeout: defaultTimeout}
}

func (r *commandRunner) Run(ctx context.Context, name string, args ...string) *CommandResult {
	return r.RunWithStdin(ctx, nil, name, args...)
}

func (r *commandRunner) RunWithStdin(
	ctx context.Context,
	stdin io.Reader,
	name string,
	args ...string,
) *CommandResult {
	if r.defaultTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.defaultTimeout)
		defer cancel()
	}

	return run(ctx, stdin, name, args...)
}

func (*commandRunner) RunWithTimeout(
	ctx context.Context,
	timeout time.Duration,
	name string,
	args ...string,
) *CommandResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return run(ctx, nil, name, args...)
}

func run(ctx context.Context, stdin io.Reader, name string, args ...string) *CommandResult {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError

	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		result.Err = errors.Wrapf(err, "%s exited with code %d", name, result.ExitCode)
	default:
		result.ExitCode = -1
		result.Err = errors.Wrapf(err, "executing %s", name)
	}

	return result
}
