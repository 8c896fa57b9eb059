// Package fakerun provides a scripted process factory for tests.
package fakerun

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Norgate-AV/kbuild/internal/runner"
)

// HandlerFunc emulates a tool. A non-nil error is returned from Run.
type HandlerFunc func(c *runner.Command) error

// Exit is an error carrying an exit status, like *exec.ExitError
type Exit int

func (e Exit) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

// ExitCode returns the scripted exit status
func (e Exit) ExitCode() int {
	return int(e)
}

// Fake records every command and dispatches it to a handler keyed by the
// executable name. Unknown executables succeed silently.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	Calls    []runner.Command
}

// New returns a fake with no handlers
func New() *Fake {
	return &Fake{handlers: map[string]HandlerFunc{}}
}

// Handle registers fn for the executable name
func (f *Fake) Handle(name string, fn HandlerFunc) *Fake {
	f.handlers[name] = fn
	return f
}

// Fail makes every invocation of name exit with code
func (f *Fake) Fail(name string, code int) *Fake {
	return f.Handle(name, func(*runner.Command) error {
		return Exit(code)
	})
}

// Runner returns a runner wired to the fake
func (f *Fake) Runner() *runner.Runner {
	return runner.NewWithExec(func(_ context.Context, c *runner.Command) runner.Commander {
		return &call{fake: f, cmd: c}
	})
}

// Names returns the executable names in invocation order
func (f *Fake) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		names = append(names, c.Name)
	}

	return names
}

// Find returns the recorded calls of name whose arguments contain arg
func (f *Fake) Find(name, arg string) []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []runner.Command
	for _, c := range f.Calls {
		if c.Name != name {
			continue
		}

		for _, a := range c.Args {
			if strings.Contains(a, arg) {
				out = append(out, c)
				break
			}
		}
	}

	return out
}

type call struct {
	fake *Fake
	cmd  *runner.Command
}

func (c *call) Run() error {
	c.fake.mu.Lock()
	c.fake.Calls = append(c.fake.Calls, *c.cmd)
	fn := c.fake.handlers[c.cmd.Name]
	c.fake.mu.Unlock()

	if fn == nil {
		return nil
	}

	return fn(c.cmd)
}

// SetupEnv emulates `bash -c 'source ... && env -0 > file'` by writing env,
// NUL separated, to the file named by the last argument.
func SetupEnv(env ...string) HandlerFunc {
	return func(c *runner.Command) error {
		if len(c.Args) == 0 {
			return Exit(2)
		}

		data := strings.Join(env, "\x00")
		if data != "" {
			data += "\x00"
		}

		return os.WriteFile(c.Args[len(c.Args)-1], []byte(data), 0o600)
	}
}

// Output writes stdout and stderr text to the command's writers and succeeds
func Output(stdout, stderr string) HandlerFunc {
	return func(c *runner.Command) error {
		if c.Stdout != nil && stdout != "" {
			fmt.Fprint(c.Stdout, stdout)
		}

		if c.Stderr != nil && stderr != "" {
			fmt.Fprint(c.Stderr, stderr)
		}

		return nil
	}
}
