package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kbuild/internal/codes"
	"github.com/Norgate-AV/kbuild/internal/config"
	"github.com/Norgate-AV/kbuild/internal/logging"
	"github.com/Norgate-AV/kbuild/internal/pipeline"
	"github.com/Norgate-AV/kbuild/internal/progress"
	"github.com/Norgate-AV/kbuild/internal/runner"
)

var buildCmd = &cobra.Command{
	Use:          "build",
	Short:        "Fetch and build the libraries",
	Long:         `Fetch and build kokkos and kokkos-kernels, and fetch kokkos-tools, for the given architecture and build type.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

// newRunner creates the process runner; replaced in tests
var newRunner = runner.New

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := logging.Open(logging.Options{
		Debug:   cfg.Log.Debug,
		Warning: cfg.Log.Warning,
		Error:   cfg.Log.Error,
		Quiet:   cfg.Log.Quiet,
		File:    cfg.Log.File,
	}, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger = logger.With("run_id", uuid.NewString())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracker progress.Tracker = progress.Nop{}
	// Debug records are logged while a stage runs
	if cfg.Progress && !cfg.Log.Quiet && !cfg.Log.Debug && cfg.Log.File == "" && logging.IsTerminal(os.Stderr) {
		tracker = progress.NewSpinner(os.Stderr)
	}

	logger.Info("starting build",
		"arch", cfg.Architecture.Flag(),
		"build_type", cfg.BuildType,
		"target", cfg.Target,
	)

	p := pipeline.New(cfg, newRunner(), pipeline.WithLogger(logger), pipeline.WithTracker(tracker))
	report, err := p.Run(ctx)

	if !cfg.Log.Quiet {
		printSummary(cmd.OutOrStdout(), report, colorize(cmd.OutOrStdout()))
	}

	return err
}

// printSummary writes one line per stage of the report
func printSummary(w io.Writer, report *pipeline.Report, colored bool) {
	if report == nil {
		return
	}

	paint := func(s color.Color, text string) string {
		if colored {
			return s.Sprint(text)
		}

		return text
	}

	for _, s := range report.Stages {
		status := paint(color.Green, "ok  ")
		detail := ""

		if s.Failed() {
			status = paint(color.Red, "FAIL")
			detail = s.Err.Error()

			if n := len(s.Results); n > 0 && s.Results[n-1].Code >= 0 {
				detail += ": " + codes.Describe(s.Results[n-1].Code)
			}
		}

		fmt.Fprintf(w, "%s %-24s %8s  %s\n", status, s.Name, s.Duration.Round(time.Millisecond), detail)
	}

	if report.SetupScript != "" {
		fmt.Fprintf(w, "setup script: %s\n", report.SetupScript)
	}
}

func colorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && logging.IsTerminal(f)
}
