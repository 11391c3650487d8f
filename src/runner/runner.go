// Package runner executes external commands synchronously and turns a
// non-zero exit into a structured error carrying the captured output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
)

// Command describes a single process invocation.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory; empty means the caller's.
	Dir string

	// Stdin, when set, is fed to the process. Used for secrets that must not
	// appear on the command line.
	Stdin io.Reader

	// Capture buffers stdout and stderr instead of streaming them.
	Capture bool
}

// String renders the command line for messages and logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result holds captured output of a successful command.
type Result struct {
	Stdout string
	Stderr string
}

// Runner runs commands. Every call is attempted exactly once.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// CommandError is returned when a process exits non-zero or cannot start.
type CommandError struct {
	Command  string
	ExitCode int // -1 when the process never ran
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command failed to start: %s: %v", e.Command, e.Err)
	}
	msg := fmt.Sprintf("command failed with exit code %d: %s", e.ExitCode, e.Command)
	if e.Stdout != "" {
		msg += "\nstdout:\n" + e.Stdout
	}
	if e.Stderr != "" {
		msg += "\nstderr:\n" + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Exec runs commands with os/exec.
type Exec struct {
	// Stdout and Stderr receive output of commands that don't capture.
	Stdout io.Writer
	Stderr io.Writer
	Log    logr.Logger
}

// NewExec creates a runner streaming to the process's own stdout/stderr.
func NewExec(log logr.Logger) *Exec {
	return &Exec{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Log:    log,
	}
}

// Run executes cmd and waits for it to finish.
func (r *Exec) Run(ctx context.Context, c Command) (*Result, error) {
	r.Log.V(1).Info("exec", "command", c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin

	var stdout, stderr bytes.Buffer
	if c.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
	}

	if err := cmd.Run(); err != nil {
		cerr := &CommandError{
			Command:  c.String(),
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		}
		return nil, cerr
	}

	return &Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
