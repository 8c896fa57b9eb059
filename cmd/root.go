package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kbuild/internal/config"
	"github.com/Norgate-AV/kbuild/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "kbuild",
	Short: "Fetch and build Kokkos",
	Long: `Fetch and build kokkos and kokkos-kernels for one architecture and build type,
and fetch kokkos-tools, below <target>/kokkos-<tag>/<arch>/<build-type>/.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.String()
	config.AddBuildFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(buildCmd, planCmd, archsCmd)
}
