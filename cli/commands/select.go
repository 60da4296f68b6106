package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phormium-go/phormium/cli/internal/ui"
	"github.com/phormium-go/phormium/config"
	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
	"github.com/phormium-go/phormium/query/sqlgen"
	"github.com/phormium-go/phormium/runtime/client"
	"github.com/phormium-go/phormium/runtime/types"
)

// selectOptions are the flags of the select command
type selectOptions struct {
	columns  []string
	where    string
	order    []string
	limit    int
	offset   int
	distinct bool
	dryRun   bool
}

var selectOpts selectOptions

var selectCmd = &cobra.Command{
	Use:   "select <database> <table>",
	Short: "Query the rows of a table",
	Long: `Build a SELECT with the query builder of the database's dialect and
print the matching rows, or only the statement with --dry-run.

Filters are written as expressions:

  --where "income > 100 and (name like 'A%' or email is null)"
  --where "id in (1, 2, 3)"
  --where "income between 10 and 20"`,
	Args: cobra.ExactArgs(2),
	RunE: runSelect,
}

func init() {
	flags := selectCmd.Flags()
	flags.StringSliceVar(&selectOpts.columns, "columns", nil, "Columns to select")
	flags.StringVarP(&selectOpts.where, "where", "w", "", "Filter expression")
	flags.StringArrayVarP(&selectOpts.order, "order", "o", nil, "Order by column[:asc|desc], may be repeated")
	flags.IntVarP(&selectOpts.limit, "limit", "l", -1, "Maximum number of rows")
	flags.IntVar(&selectOpts.offset, "offset", -1, "Number of rows to skip")
	flags.BoolVar(&selectOpts.distinct, "distinct", false, "Only return distinct rows")
	flags.BoolVar(&selectOpts.dryRun, "dry-run", false, "Print the statement without running it")
	_ = selectCmd.MarkFlagRequired("columns")

	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	name, table := args[0], args[1]

	meta, err := types.NewMeta(table, name, selectOpts.columns)
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer closeClient(ctx, c, &err)

	qs, err := selectOpts.querySet(c, meta)
	if err != nil {
		return err
	}

	if selectOpts.dryRun {
		return printStatement(c.Config(), meta, qs)
	}
	return printSelect(ctx, meta, qs)
}

// querySet applies the filter, ordering and limit flags to the rows of meta
func (o selectOptions) querySet(c *client.Client, meta *types.Meta) (*client.QuerySet, error) {
	qs, err := c.Objects(meta)
	if err != nil {
		return nil, err
	}

	if o.where != "" {
		f, err := filter.Parse(o.where)
		if err != nil {
			return nil, err
		}
		if qs, err = qs.Filter(f); err != nil {
			return nil, err
		}
	}

	for _, spec := range o.order {
		column, direction := parseOrder(spec)
		if qs, err = qs.OrderBy(column, direction); err != nil {
			return nil, err
		}
	}

	if o.limit >= 0 || o.offset >= 0 {
		if qs, err = qs.Limit(optional(o.limit), optional(o.offset)); err != nil {
			return nil, err
		}
	}
	return qs, nil
}

// parseOrder splits "column[:direction]", defaulting to ascending
func parseOrder(spec string) (string, string) {
	column, direction, found := strings.Cut(spec, ":")
	if !found || direction == "" {
		direction = query.Ascending
	}
	return column, direction
}

func optional(n int) interface{} {
	if n < 0 {
		return nil
	}
	return n
}

// printStatement prints the SELECT without connecting to the database
func printStatement(cfg *config.Config, meta *types.Meta, qs *client.QuerySet) error {
	gen, err := sqlgen.NewGenerator(cfg.Databases[meta.Database].Driver)
	if err != nil {
		return err
	}

	seg, err := gen.Select(meta, sqlgen.SelectSpec{
		Columns:  meta.Columns,
		Distinct: selectOpts.distinct,
		Filter:   qs.GetFilter(),
		Order:    qs.GetOrder(),
		Limit:    qs.GetLimit(),
	})
	if err != nil {
		return err
	}

	ui.PrintCodeBlock(seg.SQL, string(gen.Dialect()))
	if len(seg.Args) > 0 {
		items := make([]string, len(seg.Args))
		for i, arg := range seg.Args {
			items[i] = formatValue(arg)
		}
		ui.PrintList(items)
	}
	return nil
}

func printSelect(ctx context.Context, meta *types.Meta, qs *client.QuerySet) error {
	var rows []query.Row
	var err error
	if selectOpts.distinct {
		rows, err = qs.Distinct(ctx, meta.Columns...)
	} else {
		rows, err = qs.Fetch(ctx)
	}
	if err != nil {
		return err
	}
	return printRows(meta.Columns, rows)
}
