// Package database manages named database connections and the lazily
// enrolled transactions spanning them.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/Masterminds/squirrel"
	"github.com/hashicorp/go-version"
	"github.com/spf13/cast"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/sqlgen"
)

// Conn is a single named database session
type Conn interface {
	Name() string
	Dialect() sqlgen.Dialect

	// Execute runs a statement without arguments and returns the number of
	// affected rows. PreparedExecute binds the segment arguments.
	Execute(ctx context.Context, seg query.Segment) (int64, error)
	PreparedExecute(ctx context.Context, seg query.Segment) (int64, error)

	Query(ctx context.Context, seg query.Segment) ([]query.Row, error)
	PreparedQuery(ctx context.Context, seg query.Segment) ([]query.Row, error)

	// PreparedIterate streams rows to fn, stopping at the first error
	PreparedIterate(ctx context.Context, seg query.Segment, fn func(query.Row) error) error

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	InTransaction() bool

	Disconnect(ctx context.Context) error
}

// executor is implemented by both *sql.Conn and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var _ Conn = (*Connection)(nil)

var versionPattern = regexp.MustCompile(`^\d+(\.\d+)*`)

// Connection is a Conn pinned to one session of a *sql.DB. Statements run
// inside the open transaction when there is one. Not safe for concurrent use.
type Connection struct {
	name      string
	dialect   sqlgen.Dialect
	generator sqlgen.Generator
	format    squirrel.PlaceholderFormat

	db    *sql.DB
	conn  *sql.Conn
	tx    *sql.Tx
	chain *Chain

	closed bool
}

// Open pins a session from db and wraps it. The connection takes ownership
// of db and closes it on Disconnect.
func Open(ctx context.Context, name, dialect string, db *sql.DB, chain *Chain) (*Connection, error) {
	gen, err := sqlgen.NewGenerator(dialect)
	if err != nil {
		return nil, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed connecting to database %q: %w", ErrConnection, name, err)
	}

	return &Connection{
		name:      name,
		dialect:   gen.Dialect(),
		generator: gen,
		format:    placeholderFormat(gen.Dialect()),
		db:        db,
		conn:      conn,
		chain:     chain,
	}, nil
}

func placeholderFormat(d sqlgen.Dialect) squirrel.PlaceholderFormat {
	switch d {
	case sqlgen.Postgres:
		return squirrel.Dollar
	case sqlgen.SQLServer:
		return squirrel.AtP
	default:
		return squirrel.Question
	}
}

// Name returns the configured connection name
func (c *Connection) Name() string { return c.name }

// Dialect returns the SQL dialect spoken by the connection
func (c *Connection) Dialect() sqlgen.Dialect { return c.dialect }

// Generator returns the statement generator for the connection's dialect
func (c *Connection) Generator() sqlgen.Generator { return c.generator }

func (c *Connection) Execute(ctx context.Context, seg query.Segment) (int64, error) {
	if len(seg.Args) > 0 {
		return 0, fmt.Errorf("%w: execute does not take arguments, %d given, use PreparedExecute", ErrConnection, len(seg.Args))
	}
	return c.exec(ctx, seg, false)
}

func (c *Connection) PreparedExecute(ctx context.Context, seg query.Segment) (int64, error) {
	return c.exec(ctx, seg, true)
}

func (c *Connection) Query(ctx context.Context, seg query.Segment) ([]query.Row, error) {
	if len(seg.Args) > 0 {
		return nil, fmt.Errorf("%w: query does not take arguments, %d given, use PreparedQuery", ErrConnection, len(seg.Args))
	}
	return c.fetch(ctx, seg, false)
}

func (c *Connection) PreparedQuery(ctx context.Context, seg query.Segment) ([]query.Row, error) {
	return c.fetch(ctx, seg, true)
}

func (c *Connection) PreparedIterate(ctx context.Context, seg query.Segment, fn func(query.Row) error) error {
	event, sqlText, err := c.event(seg, true)
	if err != nil {
		return err
	}

	return c.chain.Run(ctx, event, func() error {
		rows, stmt, err := c.queryRows(ctx, sqlText, seg.Args, true)
		if err != nil {
			return err
		}
		defer closeAll(rows, stmt)

		n, err := eachRow(rows, fn)
		event.Rows = n
		return err
	})
}

func (c *Connection) exec(ctx context.Context, seg query.Segment, prepared bool) (int64, error) {
	event, sqlText, err := c.event(seg, prepared)
	if err != nil {
		return 0, err
	}

	err = c.chain.Run(ctx, event, func() error {
		ex := c.executor()

		var res sql.Result
		var err error
		if prepared {
			var stmt *sql.Stmt
			stmt, err = ex.PrepareContext(ctx, sqlText)
			if err != nil {
				return fmt.Errorf("failed preparing query: %w", err)
			}
			defer stmt.Close()
			res, err = stmt.ExecContext(ctx, seg.Args...)
		} else {
			res, err = ex.ExecContext(ctx, sqlText)
		}
		if err != nil {
			return err
		}

		event.RowsAffected, err = res.RowsAffected()
		return err
	})
	return event.RowsAffected, err
}

func (c *Connection) fetch(ctx context.Context, seg query.Segment, prepared bool) ([]query.Row, error) {
	event, sqlText, err := c.event(seg, prepared)
	if err != nil {
		return nil, err
	}

	result := []query.Row{}
	err = c.chain.Run(ctx, event, func() error {
		rows, stmt, err := c.queryRows(ctx, sqlText, seg.Args, prepared)
		if err != nil {
			return err
		}
		defer closeAll(rows, stmt)

		n, err := eachRow(rows, func(row query.Row) error {
			result = append(result, row)
			return nil
		})
		event.Rows = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// queryRows runs a query on the current executor. The returned statement,
// if any, must be closed after the rows.
func (c *Connection) queryRows(ctx context.Context, sqlText string, args []interface{}, prepared bool) (*sql.Rows, *sql.Stmt, error) {
	ex := c.executor()
	if !prepared {
		rows, err := ex.QueryContext(ctx, sqlText)
		return rows, nil, err
	}

	stmt, err := ex.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed preparing query: %w", err)
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		stmt.Close()
		return nil, nil, err
	}
	return rows, stmt, nil
}

func closeAll(rows *sql.Rows, stmt *sql.Stmt) {
	rows.Close()
	if stmt != nil {
		stmt.Close()
	}
}

// event converts the segment to the driver's placeholder format and builds
// the event passed through the middleware chain.
func (c *Connection) event(seg query.Segment, prepared bool) (*QueryEvent, string, error) {
	if c.closed {
		return nil, "", c.errClosed()
	}

	sqlText, err := c.format.ReplacePlaceholders(seg.SQL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return &QueryEvent{
		Conn:       c,
		Connection: c.name,
		Query:      sqlText,
		Args:       seg.Args,
		Prepared:   prepared,
	}, sqlText, nil
}

// executor is resolved when the statement runs since middleware may have
// opened a transaction in the meantime.
func (c *Connection) executor() executor {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

func (c *Connection) errClosed() error {
	return fmt.Errorf("%w: connection %q is disconnected", ErrConnection, c.name)
}

// Begin starts a transaction. Transactions do not nest.
func (c *Connection) Begin(ctx context.Context) error {
	if c.closed {
		return c.errClosed()
	}
	if c.tx != nil {
		return fmt.Errorf("%w: already in transaction", ErrConnection)
	}

	// The transaction outlives the context of the statement that began it
	tx, err := c.conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return fmt.Errorf("%w: failed starting transaction on %q: %w", ErrConnection, c.name, err)
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction
func (c *Connection) Commit(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("%w: cannot commit, not in transaction", ErrConnection)
	}

	// The transaction is finished even when commit fails
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed committing transaction on %q: %w", ErrConnection, c.name, err)
	}
	return nil
}

// Rollback rolls back the open transaction
func (c *Connection) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("%w: cannot roll back, not in transaction", ErrConnection)
	}

	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("%w: failed rolling back transaction on %q: %w", ErrConnection, c.name, err)
	}
	return nil
}

// InTransaction reports whether a transaction is open
func (c *Connection) InTransaction() bool {
	return c.tx != nil
}

// Disconnect rolls back any open transaction and releases the session and
// its pool. Calling it again is a no-op.
func (c *Connection) Disconnect(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.tx != nil {
		if err := c.Rollback(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, fmt.Errorf("%w: failed closing connection %q: %w", ErrConnection, c.name, err))
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: failed closing database %q: %w", ErrConnection, c.name, err))
	}
	return errors.Join(errs...)
}

// Ping verifies the session is still alive
func (c *Connection) Ping(ctx context.Context) error {
	if c.closed {
		return c.errClosed()
	}
	if err := c.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping failed on %q: %w", ErrConnection, c.name, err)
	}
	return nil
}

// Stats returns the statistics of the underlying pool
func (c *Connection) Stats() sql.DBStats {
	return c.db.Stats()
}

// ServerVersion queries the server version and parses its leading numeric
// part, e.g. "8.0.36" out of "8.0.36-0ubuntu0.22.04.1".
func (c *Connection) ServerVersion(ctx context.Context) (*version.Version, string, error) {
	raw, err := c.scalar(ctx, c.generator.ServerVersion())
	if err != nil {
		return nil, "", err
	}

	text := cast.ToString(raw)
	v, err := version.NewVersion(versionPattern.FindString(text))
	if err != nil {
		return nil, text, fmt.Errorf("%w: cannot parse server version %q: %w", ErrConnection, text, err)
	}
	return v, text, nil
}

// LastInsertID returns the last generated identity on this session
func (c *Connection) LastInsertID(ctx context.Context) (int64, error) {
	raw, err := c.scalar(ctx, c.generator.LastInsertID())
	if err != nil {
		return 0, err
	}
	id, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid last insert id %v: %w", ErrConnection, raw, err)
	}
	return id, nil
}

// scalar runs seg and returns the first column of the first row
func (c *Connection) scalar(ctx context.Context, seg query.Segment) (interface{}, error) {
	event, sqlText, err := c.event(seg, false)
	if err != nil {
		return nil, err
	}

	var value interface{}
	err = c.chain.Run(ctx, event, func() error {
		rows, _, err := c.queryRows(ctx, sqlText, nil, false)
		if err != nil {
			return err
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w: %q returned no rows", ErrConnection, sqlText)
		}
		if err := rows.Scan(&value); err != nil {
			return err
		}
		event.Rows = 1
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		return rows.Err()
	})
	return value, err
}
