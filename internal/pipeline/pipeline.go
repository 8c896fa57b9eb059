// Package pipeline runs the fetch and build stages of a kbuild run in order.
//
// The stages are
//
//	prepare layout -> [fetch kokkos -> build kokkos]
//	              -> [fetch kokkos-kernels -> build kokkos-kernels]
//	              -> [fetch kokkos-tools] -> persist setup script
//
// Bracketed groups are enabled independently. A failed build aborts the run;
// a failed fetch is logged and the run continues unless strict fetching is
// enabled.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Norgate-AV/kbuild/internal/cmake"
	"github.com/Norgate-AV/kbuild/internal/config"
	"github.com/Norgate-AV/kbuild/internal/layout"
	"github.com/Norgate-AV/kbuild/internal/progress"
	"github.com/Norgate-AV/kbuild/internal/runner"
	"github.com/Norgate-AV/kbuild/internal/source"
)

// StageResult is the outcome of one stage
type StageResult struct {
	Name     string
	Kind     Kind
	Repo     string
	Results  []*runner.Result
	Duration time.Duration
	Err      error
}

// Failed reports whether the stage returned an error
func (s StageResult) Failed() bool {
	return s.Err != nil
}

// Report lists what a run did, in order
type Report struct {
	Root   string
	Stages []StageResult

	// SetupScript is the persisted copy, empty when the run did not finish
	SetupScript string
}

// Failures returns the stages that failed
func (r *Report) Failures() []StageResult {
	var out []StageResult
	for _, s := range r.Stages {
		if s.Failed() {
			out = append(out, s)
		}
	}

	return out
}

// Pipeline runs the stages described by a configuration
type Pipeline struct {
	cfg      *config.Config
	fetcher  *source.Fetcher
	executor *cmake.Executor
	tracker  progress.Tracker
	logger   *slog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger used by the pipeline and its components
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithTracker sets the progress tracker notified around each stage
func WithTracker(t progress.Tracker) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracker = t
		}
	}
}

// New creates a pipeline that starts every tool through r
func New(cfg *config.Config, r *runner.Runner, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		tracker: progress.Nop{},
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.fetcher = source.NewFetcher(r,
		source.WithGitPath(cfg.Exec.Git),
		source.WithLogger(p.logger),
	)

	p.executor = cmake.NewExecutor(r,
		cmake.WithLogger(p.logger),
		cmake.WithJobs(cfg.Jobs),
		cmake.WithTools(cfg.Exec.Shell, cfg.Exec.CMake, cfg.Exec.Make),
	)

	return p
}

// Layout derives the install layout of the configured run
func (p *Pipeline) Layout() (*layout.Layout, error) {
	return layout.New(
		p.cfg.Target,
		p.cfg.LayoutName(),
		p.cfg.LayoutVersion(),
		p.cfg.Architecture.Name(),
		p.cfg.BuildType,
	)
}

// Run prepares the layout, runs every enabled stage and persists the setup
// script. The report is returned even when a stage fails.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	l, err := p.Layout()
	if err != nil {
		return report, err
	}

	report.Root = l.Root()

	planned, err := stages(p.cfg)
	if err != nil {
		return report, err
	}

	p.logger.Info("preparing install root", "root", l.Root())

	if err := l.Prepare(); err != nil {
		return report, err
	}

	for _, s := range planned {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := p.runStage(ctx, l, s)
		report.Stages = append(report.Stages, res)

		if res.Err == nil {
			continue
		}

		var fetchErr *source.FetchError
		if errors.As(res.Err, &fetchErr) && !p.cfg.StrictFetch && ctx.Err() == nil {
			p.logger.Warn("continuing after failed fetch", "repo", s.target.Name())
			continue
		}

		return report, res.Err
	}

	dst, err := l.PersistSetupScript(p.cfg.SetupScript)
	if err != nil {
		return report, err
	}

	report.SetupScript = dst
	p.logger.Info("installation complete", "root", l.Root(), "setup_script", dst)

	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, l *layout.Layout, s stage) StageResult {
	res := StageResult{Name: s.name(), Kind: s.kind, Repo: s.target.Name()}

	p.logger.Info("starting stage", "stage", res.Name, "source", s.target.String())
	p.tracker.Start(res.Name)
	start := time.Now()

	switch s.kind {
	case KindFetch:
		r, err := p.fetcher.Fetch(ctx, l, s.target)
		if r != nil {
			res.Results = append(res.Results, r)
		}
		res.Err = err
	case KindBuild:
		res.Results, res.Err = p.executor.Build(ctx, l, s.target.Name(), p.cfg.SetupScript, s.opts)
	default:
		res.Err = fmt.Errorf("unknown stage kind %q", s.kind)
	}

	res.Duration = time.Since(start)

	// The spinner shares the console with the logger
	p.tracker.Stop()

	if res.Err != nil {
		p.logger.Error("stage failed", "stage", res.Name, "duration", res.Duration, "error", res.Err)
		return res
	}

	p.logger.Info("finished stage", "stage", res.Name, "duration", res.Duration)

	return res
}
