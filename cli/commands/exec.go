package commands

import (
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/phormium-go/phormium/cli/internal/ui"
	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/runtime/client"
	"github.com/phormium-go/phormium/runtime/database"
)

var execYes bool

var execCmd = &cobra.Command{
	Use:   "exec <database> <sql> [args...]",
	Short: "Execute a SQL statement",
	Long: `Execute a prepared SQL statement against a configured database.

Use ? placeholders for the arguments whatever the database. Statements
returning rows (SELECT, WITH, ...) print a result table, others print the
number of affected rows. UPDATE and DELETE statements without a WHERE
clause ask for confirmation unless --yes is given.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

func init() {
	execCmd.Flags().BoolVarP(&execYes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(execCmd)
}

var (
	leadingKeyword = regexp.MustCompile(`^\s*([A-Za-z]+)`)
	whereClause    = regexp.MustCompile(`(?i)\bWHERE\b`)
)

func statementKeyword(statement string) string {
	m := leadingKeyword.FindStringSubmatch(statement)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// returnsRows reports whether statement produces a result set
func returnsRows(statement string) bool {
	switch statementKeyword(statement) {
	case "SELECT", "WITH", "SHOW", "EXPLAIN", "PRAGMA", "VALUES", "DESCRIBE":
		return true
	}
	return false
}

// needsConfirmation reports whether statement modifies every row of a table
func needsConfirmation(statement string) bool {
	switch statementKeyword(statement) {
	case "UPDATE", "DELETE":
		return !whereClause.MatchString(statement)
	}
	return false
}

func runExec(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	name, statement := args[0], args[1]

	params := make([]interface{}, 0, len(args)-2)
	for _, a := range args[2:] {
		params = append(params, a)
	}

	if needsConfirmation(statement) && !execYes {
		confirmed := false
		prompt := &survey.Confirm{
			Message: "The statement has no WHERE clause and affects every row. Continue?",
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			ui.PrintWarning("aborted")
			return nil
		}
	}

	var elapsed time.Duration
	timing := database.TimingMiddleware(func(_ string, d time.Duration) {
		elapsed += d
	})

	c, err := newClient(client.WithMiddleware(timing))
	if err != nil {
		return err
	}
	defer closeClient(ctx, c, &err)

	conn, err := c.Database().GetConnection(ctx, name)
	if err != nil {
		return err
	}

	seg := query.NewSegment(statement, params...)
	if returnsRows(statement) {
		rows, err := conn.PreparedQuery(ctx, seg)
		if err != nil {
			return err
		}
		if err := printRows(rowColumns(rows), rows); err != nil {
			return err
		}
	} else {
		affected, err := conn.PreparedExecute(ctx, seg)
		if err != nil {
			return err
		}
		ui.PrintSuccess("%d row(s) affected", affected)
	}

	ui.PrintInfo("completed in %s", elapsed.Round(time.Microsecond))
	return nil
}
