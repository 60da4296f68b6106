package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phormium-go/phormium/cli/internal/ui"
	"github.com/phormium-go/phormium/cli/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Fprintln(ui.Out, ui.TitleStyle.Render("phormium "+info.Version))
		ui.PrintPairs(info.Details())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
