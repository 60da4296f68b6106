package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phormium-go/phormium/cli/internal/ui"
	"github.com/phormium-go/phormium/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the loaded configuration",
	Long:  "Render the loaded configuration, with .env values and PHORMIUM_ overrides applied and passwords masked.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return ui.PrintMarkdown(configMarkdown(cfg))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func configMarkdown(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("# Configuration\n\n")
	fmt.Fprintf(&b, "Debug: **%t**\n\n", cfg.Debug)

	if len(cfg.Databases) == 0 {
		b.WriteString("_No databases configured._\n")
		return b.String()
	}

	for _, name := range cfg.Names() {
		db := cfg.Databases[name].Masked()

		fmt.Fprintf(&b, "## %s\n\n", name)
		b.WriteString("| Setting | Value |\n| --- | --- |\n")
		fmt.Fprintf(&b, "| dsn | `%s` |\n", db.DSN)
		fmt.Fprintf(&b, "| driver | %s |\n", db.Driver)
		if db.Username != "" {
			fmt.Fprintf(&b, "| username | %s |\n", db.Username)
		}
		if db.Password != "" {
			fmt.Fprintf(&b, "| password | %s |\n", db.Password)
		}
		for _, attr := range slices.Sorted(maps.Keys(db.Attributes)) {
			fmt.Fprintf(&b, "| %s | %v |\n", attr, db.Attributes[attr])
		}
		b.WriteString("\n")
	}
	return b.String()
}
