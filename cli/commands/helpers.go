package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cast"

	"github.com/phormium-go/phormium/cli/internal/ui"
	"github.com/phormium-go/phormium/config"
	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/runtime/client"
	"github.com/phormium-go/phormium/runtime/database"
)

// loadConfig loads the configuration named by --config or the default one
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if debugMode {
		cfg.Debug = true
	}
	return cfg, nil
}

// closeClient disconnects c and joins any disconnect error into err
func closeClient(ctx context.Context, c interface{ Close(context.Context) error }, err *error) {
	if cerr := c.Close(ctx); cerr != nil {
		*err = errors.Join(*err, cerr)
	}
}

// newClient creates a client over the loaded configuration
func newClient(opts ...client.Option) (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg, nil, opts...)
}

// connection opens the named database
func connection(ctx context.Context, c *client.Client, name string) (*database.Connection, error) {
	conn, err := c.Database().GetConnection(ctx, name)
	if err != nil {
		return nil, err
	}
	dc, ok := conn.(*database.Connection)
	if !ok {
		return nil, fmt.Errorf("connection %q cannot be inspected", name)
	}
	return dc, nil
}

// printRows prints rows as a table with columns in the given order
func printRows(columns []string, rows []query.Row) error {
	if len(rows) == 0 {
		ui.PrintInfo("no rows")
		return nil
	}

	data := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j, column := range columns {
			cells[j] = formatValue(row[column])
		}
		data[i] = cells
	}

	if err := ui.PrintTable(columns, data); err != nil {
		return err
	}
	ui.PrintInfo("%d row(s)", len(rows))
	return nil
}

// rowColumns returns the columns of the first row in sorted order
func rowColumns(rows []query.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(rows[0]))
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ui.Null()
	case []byte:
		return fmt.Sprintf("0x%x", v)
	case time.Time:
		return v.Format(time.RFC3339)
	}
	return cast.ToString(v)
}
