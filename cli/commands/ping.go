package commands

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/phormium-go/phormium/cli/internal/ui"
	"github.com/phormium-go/phormium/config"
	"github.com/phormium-go/phormium/query/sqlgen"
)

// minimumVersions are the oldest servers whose SQL the generators target.
// SQLite needs 3.35 for RETURNING.
var minimumVersions = map[sqlgen.Dialect]*version.Version{
	sqlgen.Postgres: version.Must(version.NewVersion("9.6")),
	sqlgen.MySQL:    version.Must(version.NewVersion("5.7")),
	sqlgen.SQLite:   version.Must(version.NewVersion("3.35")),
}

var pingCmd = &cobra.Command{
	Use:   "ping [database...]",
	Short: "Check database connections",
	Long: `Connect to the given databases, or every configured database, and
print the driver and server version of each.

A warning is printed for servers older than the supported minimum.`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()

	c, err := newClient()
	if err != nil {
		return err
	}
	defer closeClient(ctx, c, &err)

	names := args
	if len(names) == 0 {
		names = c.Config().Names()
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no databases configured", config.ErrConfiguration)
	}

	ui.PrintHeader("Phormium", "Ping")

	var rows [][]string
	var warnings []string
	failed := 0
	for _, name := range names {
		driver := c.Config().Databases[name].Driver

		conn, err := connection(ctx, c, name)
		if err == nil {
			err = conn.Ping(ctx)
		}
		if err != nil {
			failed++
			rows = append(rows, []string{name, driver, "-", ui.ErrorStyle.Render(err.Error())})
			continue
		}

		v, raw, err := conn.ServerVersion(ctx)
		if err != nil {
			raw = "unknown"
		} else if w := outdated(conn.Dialect(), v); w != "" {
			warnings = append(warnings, name+": "+w)
		}
		rows = append(rows, []string{name, driver, raw, ui.SuccessStyle.Render("ok")})
	}

	if err := ui.PrintTable([]string{"Database", "Driver", "Server", "Status"}, rows); err != nil {
		return err
	}
	for _, w := range warnings {
		ui.PrintWarning("%s", w)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d databases unreachable", failed, len(names))
	}
	return nil
}

// outdated describes why v is too old for dialect, empty when it is not
func outdated(dialect sqlgen.Dialect, v *version.Version) string {
	minimum, ok := minimumVersions[dialect]
	if !ok || !v.LessThan(minimum) {
		return ""
	}
	return fmt.Sprintf("%s server %s is older than the supported minimum %s", dialect, v, minimum)
}
