// Package cmake configures, builds and installs a checked out repository
// with cmake and make, inside the environment produced by a setup script.
package cmake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Norgate-AV/kbuild/internal/layout"
	"github.com/Norgate-AV/kbuild/internal/runner"
)

// Boolean option values
const (
	On  = "On"
	Off = "Off"
)

// Step names, in execution order
const (
	StepSetup     = "setup"
	StepConfigure = "configure"
	StepInstall   = "install"
)

// setupScript sources the setup script with the install root as its
// argument and dumps the resulting environment, NUL separated, to $3
const setupScript = `source "$1" "$2" && env -0 > "$3"`

// toolRef matches option values that name a tool to be located on the
// PATH of the setup environment
var toolRef = regexp.MustCompile(`^\$\(which\s+([^\s)]+)\)$`)

// BuildError reports a failed configure/build/install chain. It is fatal
// for the pipeline.
type BuildError struct {
	Repo string
	Step string
	Code int
	Err  error
}

func (e *BuildError) Error() string {
	if e.Code >= 0 {
		return fmt.Sprintf("cmake for %s returned non-zero value: %d (%s step)", e.Repo, e.Code, e.Step)
	}

	return fmt.Sprintf("cmake for %s failed in %s step: %v", e.Repo, e.Step, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Executor runs the setup → configure → install chain for one repository
type Executor struct {
	runner *runner.Runner
	logger *slog.Logger
	shell  string
	cmake  string
	make   string
	jobs   int
}

// Option configures an Executor
type Option func(*Executor)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithJobs sets the make parallelism. Zero means unbounded (-j).
func WithJobs(n int) Option {
	return func(e *Executor) {
		e.jobs = n
	}
}

// WithTools overrides the shell, cmake and make executables
func WithTools(shell, cmake, make string) Option {
	return func(e *Executor) {
		if shell != "" {
			e.shell = shell
		}

		if cmake != "" {
			e.cmake = cmake
		}

		if make != "" {
			e.make = make
		}
	}
}

// NewExecutor creates an executor that starts processes through r
func NewExecutor(r *runner.Runner, opts ...Option) *Executor {
	e := &Executor{
		runner: r,
		logger: slog.Default(),
		shell:  "bash",
		cmake:  "cmake",
		make:   "make",
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type step struct {
	name    string
	command func() (*runner.Command, error)
}

// Build runs the chain for repo. Output of every step is appended to
// <root>/<repo>_cmake_stdout.txt and <root>/<repo>_cmake_stderr.txt. The
// first failing step stops the chain and is returned as a *BuildError.
// Results of the steps that ran are returned in order.
func (e *Executor) Build(ctx context.Context, l *layout.Layout, repo, setup string, opts *Options) (results []*runner.Result, err error) {
	stdout, err := os.Create(l.Capture(repo, "cmake", "stdout"))
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer closeInto(stdout, &err)

	stderr, err := os.Create(l.Capture(repo, "cmake", "stderr"))
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer closeInto(stderr, &err)

	envFile, err := os.CreateTemp("", "kbuild-env-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create environment file: %w", err)
	}
	envFile.Close()
	defer os.Remove(envFile.Name())

	var env []string

	steps := []step{
		{
			name: StepSetup,
			command: func() (*runner.Command, error) {
				return &runner.Command{
					Name: e.shell,
					Args: []string{"-c", setupScript, "kbuild-setup", setup, l.Root(), envFile.Name()},
				}, nil
			},
		},
		{
			name: StepConfigure,
			command: func() (*runner.Command, error) {
				captured, err := readEnv(envFile.Name())
				if err != nil {
					return nil, err
				}

				env = captured

				resolved, err := resolveTools(opts, env)
				if err != nil {
					return nil, err
				}

				args := []string{
					"-S", l.Source(repo),
					"-B", l.Build(repo),
					"-DCMAKE_INSTALL_PREFIX=" + l.Install(repo),
				}

				return &runner.Command{
					Name: executable(e.cmake, env),
					Args: append(args, resolved.Args()...),
					Env:  env,
				}, nil
			},
		},
		{
			name: StepInstall,
			command: func() (*runner.Command, error) {
				return &runner.Command{
					Name: executable(e.make, env),
					Args: []string{e.jobsFlag(), "-C", l.Build(repo), "install"},
					Env:  env,
				}, nil
			},
		},
	}

	for _, s := range steps {
		c, err := s.command()
		if err != nil {
			return results, &BuildError{Repo: repo, Step: s.name, Code: -1, Err: err}
		}

		c.Dir = l.Root()
		c.Stdout = stdout
		c.Stderr = stderr

		e.logger.Debug("running build step", "repo", repo, "step", s.name, "command", c.String())

		res, err := e.runner.Run(ctx, c)
		results = append(results, res)
		if err != nil {
			e.logger.Debug("build step failed", "repo", repo, "step", s.name, "code", res.Code, "error", err)
			return results, &BuildError{Repo: repo, Step: s.name, Code: res.Code, Err: err}
		}

		e.logger.Debug("build step finished", "repo", repo, "step", s.name, "duration", res.Duration)
	}

	return results, nil
}

func (e *Executor) jobsFlag() string {
	if e.jobs > 0 {
		return "-j" + strconv.Itoa(e.jobs)
	}

	return "-j"
}

// readEnv parses the NUL separated environment written by the setup step
func readEnv(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read setup environment: %w", err)
	}

	var env []string
	for _, kv := range bytes.Split(data, []byte{0}) {
		if len(kv) == 0 || !bytes.ContainsRune(kv, '=') {
			continue
		}

		env = append(env, string(kv))
	}

	if len(env) == 0 {
		return nil, errors.New("setup script produced an empty environment")
	}

	return env, nil
}

// resolveTools replaces $(which <tool>) values with the tool's path on the
// PATH of env
func resolveTools(opts *Options, env []string) (*Options, error) {
	out := NewOptions()
	if opts == nil {
		return out, nil
	}

	for _, k := range opts.Keys() {
		v, _ := opts.Get(k)

		if m := toolRef.FindStringSubmatch(v); m != nil {
			path, err := lookPath(m[1], env)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s for %s: %w", m[1], k, err)
			}

			v = path
		}

		out.Set(k, v)
	}

	return out, nil
}

// executable locates name on the PATH of env. Names with a directory, or
// missing from that PATH, are returned unchanged.
func executable(name string, env []string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}

	if path, err := lookPath(name, env); err == nil {
		return path
	}

	return name
}

func lookPath(name string, env []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		if isExecutable(name) {
			return name, nil
		}

		return "", fmt.Errorf("%s is not executable", name)
	}

	for _, dir := range filepath.SplitList(getenv(env, "PATH")) {
		if dir == "" {
			continue
		}

		path := filepath.Join(dir, name)
		if isExecutable(path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s not found in setup environment PATH", name)
}

// getenv returns the last value of key in env, matching shell semantics
func getenv(env []string, key string) string {
	val := ""
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			val = v
		}
	}

	return val
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

func closeInto(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
