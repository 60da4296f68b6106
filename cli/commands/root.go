package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/phormium-go/phormium/cli/internal/ui"
	"github.com/phormium-go/phormium/cli/internal/version"
)

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "phormium",
	Short: "Inspect and query phormium databases",
	Long: `phormium works with the databases of a phormium configuration file.

The configuration is read from --config, or from phormium.yaml, phormium.yml
or phormium.json in the working directory, the home directory or
~/.config/phormium.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log every executed statement")
}

// Execute is the main entry point for the CLI
func Execute() error {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
