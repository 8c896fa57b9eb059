package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kbuild/internal/config"
	"github.com/Norgate-AV/kbuild/internal/pipeline"
)

var planCmd = &cobra.Command{
	Use:          "plan",
	Short:        "Print the layout and cmake options of a build without running it",
	RunE:         runPlan,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	plan, err := pipeline.New(cfg, newRunner()).Plan()
	if err != nil {
		return err
	}

	return plan.Write(cmd.OutOrStdout())
}
