// Package runner executes external tools (git, bash, cmake, make) one at a
// time and reports how each invocation ended.
//
// Process creation goes through an injectable factory so tests can fake tools
// without touching the system.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/Norgate-AV/kbuild/internal/codes"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// Command describes a single child process invocation
type Command struct {
	// Name is the executable; it is resolved through PATH when relative
	Name string
	Args []string

	// Dir is the working directory of the child. Empty means inherit.
	Dir string

	// Env replaces the child environment when non-nil
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs
func (c *Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result records how one invocation ended
type Result struct {
	Command  string
	Code     int
	Duration time.Duration
}

// Success reports whether the invocation exited with status 0
func (r *Result) Success() bool {
	return codes.IsSuccess(r.Code)
}

// ExitError is returned when a child ran and exited with a non-zero status
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d (%s)", e.Command, e.Code, codes.Describe(e.Code))
}

// Runner starts commands and waits for them
type Runner struct {
	execCommand func(ctx context.Context, c *Command) Commander
}

// New creates a runner backed by os/exec
func New() *Runner {
	return &Runner{execCommand: execCommand}
}

// NewWithExec creates a runner that uses fn to create processes
func NewWithExec(fn func(ctx context.Context, c *Command) Commander) *Runner {
	return &Runner{execCommand: fn}
}

// Run executes c and blocks until it exits. A non-zero exit status yields
// an *ExitError; failure to start the process yields the start error.
// The returned Result is always non-nil.
func (r *Runner) Run(ctx context.Context, c *Command) (*Result, error) {
	res := &Result{Command: c.String(), Code: -1}
	start := time.Now()

	err := r.execCommand(ctx, c).Run()
	res.Duration = time.Since(start)

	if err == nil {
		res.Code = 0
		return res, nil
	}

	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		res.Code = exitErr.ExitCode()
		return res, &ExitError{Command: c.Name, Code: res.Code}
	}

	return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
}

func execCommand(ctx context.Context, c *Command) Commander {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	return cmd
}
