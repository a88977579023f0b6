// Package command provides a subprocess runner with captured output and
// typed failure kinds.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/book-expert/logger"
)

// Static errors.
var (
	// ErrSpawnFailed indicates the process could not be started at all
	// (executable missing, permission denied).
	ErrSpawnFailed = errors.New("failed to spawn process")
	// ErrCommandFailed indicates the process started but exited non-zero.
	ErrCommandFailed = errors.New("command failed")
)

// Result carries the captured output of a finished process.
type Result struct {
	Stdout string
	Stderr string
}

// ExitError carries the exit code and the most useful captured diagnostics of
// a failed command. It unwraps to ErrCommandFailed.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d: %s", e.Code, e.Output)
}

func (e *ExitError) Unwrap() error {
	return ErrCommandFailed
}

// Runner spawns external processes and collects their output.
type Runner struct {
	log *logger.Logger
}

// NewRunner creates a process runner.
func NewRunner(log *logger.Logger) *Runner {
	return &Runner{
		log: log,
	}
}

// Run executes name with args and waits for it to exit. Exit code 0 is the
// only success; any other code yields an ExitError wrapping ErrCommandFailed,
// carrying the captured stderr (stdout when stderr is empty).
func (r *Runner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return r.run(ctx, "", name, args...)
}

// RunWithInput behaves like Run but feeds input to the process's stdin and
// closes it once written.
func (r *Runner) RunWithInput(ctx context.Context, input, name string, args ...string) (Result, error) {
	return r.run(ctx, input, name, args...)
}

func (r *Runner) run(ctx context.Context, input, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer

	// #nosec G204 -- executable and arguments come from provisioning-owned paths
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	r.log.Info("Running command: %s %s", name, strings.Join(args, " "))

	runErr := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runErr == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return result, &ExitError{
			Code:   exitErr.ExitCode(),
			Output: diagnosticOutput(result),
		}
	}

	return result, fmt.Errorf("%w: %s: %w", ErrSpawnFailed, name, runErr)
}

// diagnosticOutput prefers stderr and falls back to stdout so a failure always
// carries whatever the process said.
func diagnosticOutput(result Result) string {
	trimmed := strings.TrimSpace(result.Stderr)
	if trimmed != "" {
		return trimmed
	}

	return strings.TrimSpace(result.Stdout)
}
