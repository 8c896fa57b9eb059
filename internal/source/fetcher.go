// Package source identifies the repositories of a build and fetches them
// with git.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Norgate-AV/kbuild/internal/layout"
	"github.com/Norgate-AV/kbuild/internal/runner"
)

// FetchError reports a failed clone. The pipeline treats it as non-fatal
// unless configured otherwise.
type FetchError struct {
	Repo string
	Code int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("git clone for %s returned non-zero value: %d", e.Repo, e.Code)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher clones repositories into a layout
type Fetcher struct {
	runner *runner.Runner
	logger *slog.Logger
	git    string
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithGitPath sets a custom git executable path
func WithGitPath(path string) FetcherOption {
	return func(f *Fetcher) {
		if path != "" {
			f.git = path
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher creates a fetcher that starts git through r
func NewFetcher(r *runner.Runner, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		runner: r,
		logger: slog.Default(),
		git:    "git",
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CloneArgs returns the git arguments for cloning t into dir. A tag
// selects a shallow single-revision clone, otherwise the default branch is
// cloned with full history.
func CloneArgs(t Target, dir string) []string {
	args := []string{"clone"}
	if t.Tag != "" {
		args = append(args, "--depth", "1", "--branch", t.Tag)
	}

	return append(args, t.URL, dir)
}

// Fetch clones t into the layout. Output goes to <root>/<name>_git_stdout.txt
// and <root>/<name>_git_stderr.txt. A non-zero exit is logged and returned
// as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, l *layout.Layout, t Target) (res *runner.Result, err error) {
	stdout, err := os.Create(l.Capture(t.Name(), "git", "stdout"))
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer closeInto(stdout, &err)

	stderr, err := os.Create(l.Capture(t.Name(), "git", "stderr"))
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer closeInto(stderr, &err)

	c := &runner.Command{
		Name:   f.git,
		Args:   CloneArgs(t, l.Source(t.Name())),
		Dir:    l.Root(),
		Stdout: stdout,
		Stderr: stderr,
	}

	f.logger.Debug("running git", "repo", t.Name(), "command", c.String())

	res, err = f.runner.Run(ctx, c)
	if err != nil {
		f.logger.Debug("git clone failed", "repo", t.Name(), "code", res.Code, "error", err)
		return res, &FetchError{Repo: t.Name(), Code: res.Code, Err: err}
	}

	return res, nil
}

func closeInto(c interface{ Close() error }, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
