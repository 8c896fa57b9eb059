package cmd

import (
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kbuild/internal/arch"
)

var archsCmd = &cobra.Command{
	Use:          "archs",
	Short:        "List architectures with a dedicated profile",
	Long:         `List architectures with a dedicated profile. Any other architecture is accepted and only enables its own Kokkos_ARCH_ flag.`,
	RunE:         runArchs,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runArchs(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	colored := colorize(w)

	for _, k := range arch.List() {
		name := fmt.Sprintf("%-10s", k.Name)
		if colored {
			name = color.Cyan.Sprint(name)
		}

		fmt.Fprintf(w, "%s %-7s %s\n", name, k.Family, k.Description)
	}

	return nil
}
