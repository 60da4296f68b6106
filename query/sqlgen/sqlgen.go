// Package sqlgen generates SQL for different database dialects.
//
// Generated segments always use ? placeholders. Converting them to the
// driver's native placeholder format happens at the connection boundary.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
	"github.com/phormium-go/phormium/runtime/types"
)

// Dialect names a supported SQL dialect
type Dialect string

const (
	Postgres  Dialect = "postgres"
	MySQL     Dialect = "mysql"
	SQLite    Dialect = "sqlite"
	SQLServer Dialect = "sqlserver"
)

// ParseDialect resolves a dialect or driver name to a Dialect
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgsql", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	}
	return "", fmt.Errorf("%w: unsupported dialect [%s]", query.ErrInvalidQuery, name)
}

// SelectSpec describes a SELECT statement. Zero values mean "not set".
type SelectSpec struct {
	Columns  []string
	Distinct bool
	Filter   filter.Filter
	Order    *query.OrderBy
	Limit    *query.LimitOffset
}

// Generator generates SQL for a specific dialect
type Generator interface {
	Dialect() Dialect
	Quoter() Quoter

	Select(meta *types.Meta, spec SelectSpec) (query.Segment, error)
	Aggregate(meta *types.Meta, f filter.Filter, agg query.Aggregate) (query.Segment, error)
	Insert(meta *types.Meta, values map[string]interface{}) (query.Segment, error)
	Update(meta *types.Meta, f filter.Filter, values map[string]interface{}) (query.Segment, error)
	Delete(meta *types.Meta, f filter.Filter) (query.Segment, error)

	// Returning reports whether inserts return a generated primary key
	// through a RETURNING clause. Dialects without it use LastInsertID.
	Returning() bool
	LastInsertID() query.Segment
	ServerVersion() query.Segment

	// Bool maps a boolean onto the value bound for the dialect
	Bool(v bool) interface{}
}

// NewGenerator creates a new SQL generator for the given dialect or driver name
func NewGenerator(dialect string) (Generator, error) {
	d, err := ParseDialect(dialect)
	if err != nil {
		return nil, err
	}

	switch d {
	case Postgres:
		return &PostgresGenerator{base: newBase(Postgres, DoubleQuoter{})}, nil
	case MySQL:
		return &MySQLGenerator{base: newBase(MySQL, BacktickQuoter{})}, nil
	case SQLite:
		return &SQLiteGenerator{base: newBase(SQLite, DoubleQuoter{})}, nil
	default:
		return &SQLServerGenerator{base: newBase(SQLServer, BracketQuoter{})}, nil
	}
}

// NeedsGeneratedPK reports whether an insert of values into meta relies on
// the database to generate a single column primary key.
func NeedsGeneratedPK(meta *types.Meta, values map[string]interface{}) bool {
	if len(meta.PK) != 1 {
		return false
	}
	v, ok := values[meta.PK[0]]
	return !ok || v == nil
}

// PostgresGenerator generates PostgreSQL SQL
type PostgresGenerator struct{ base }

func (g *PostgresGenerator) Select(meta *types.Meta, spec SelectSpec) (query.Segment, error) {
	return g.buildSelect(meta, spec, g.Bool, limitOffset)
}

func (g *PostgresGenerator) Aggregate(meta *types.Meta, f filter.Filter, agg query.Aggregate) (query.Segment, error) {
	return g.buildAggregate(meta, f, agg, g.Bool)
}

func (g *PostgresGenerator) Insert(meta *types.Meta, values map[string]interface{}) (query.Segment, error) {
	return g.buildInsert(meta, values, g.Bool, true, "DEFAULT VALUES")
}

func (g *PostgresGenerator) Update(meta *types.Meta, f filter.Filter, values map[string]interface{}) (query.Segment, error) {
	return g.buildUpdate(meta, f, values, g.Bool)
}

func (g *PostgresGenerator) Delete(meta *types.Meta, f filter.Filter) (query.Segment, error) {
	return g.buildDelete(meta, f, g.Bool)
}

func (g *PostgresGenerator) Returning() bool { return true }

func (g *PostgresGenerator) LastInsertID() query.Segment {
	return query.NewSegment("SELECT lastval()")
}

func (g *PostgresGenerator) ServerVersion() query.Segment {
	return query.NewSegment("SHOW server_version")
}

func (g *PostgresGenerator) Bool(v bool) interface{} { return v }

// MySQLGenerator generates MySQL SQL
type MySQLGenerator struct{ base }

func (g *MySQLGenerator) Select(meta *types.Meta, spec SelectSpec) (query.Segment, error) {
	return g.buildSelect(meta, spec, g.Bool, limitOffset)
}

func (g *MySQLGenerator) Aggregate(meta *types.Meta, f filter.Filter, agg query.Aggregate) (query.Segment, error) {
	return g.buildAggregate(meta, f, agg, g.Bool)
}

func (g *MySQLGenerator) Insert(meta *types.Meta, values map[string]interface{}) (query.Segment, error) {
	return g.buildInsert(meta, values, g.Bool, false, "() VALUES ()")
}

func (g *MySQLGenerator) Update(meta *types.Meta, f filter.Filter, values map[string]interface{}) (query.Segment, error) {
	return g.buildUpdate(meta, f, values, g.Bool)
}

func (g *MySQLGenerator) Delete(meta *types.Meta, f filter.Filter) (query.Segment, error) {
	return g.buildDelete(meta, f, g.Bool)
}

func (g *MySQLGenerator) Returning() bool { return false }

func (g *MySQLGenerator) LastInsertID() query.Segment {
	return query.NewSegment("SELECT LAST_INSERT_ID()")
}

func (g *MySQLGenerator) ServerVersion() query.Segment {
	return query.NewSegment("SELECT VERSION()")
}

func (g *MySQLGenerator) Bool(v bool) interface{} { return intBool(v) }

// SQLiteGenerator generates SQLite SQL
type SQLiteGenerator struct{ base }

func (g *SQLiteGenerator) Select(meta *types.Meta, spec SelectSpec) (query.Segment, error) {
	return g.buildSelect(meta, spec, g.Bool, limitOffset)
}

func (g *SQLiteGenerator) Aggregate(meta *types.Meta, f filter.Filter, agg query.Aggregate) (query.Segment, error) {
	return g.buildAggregate(meta, f, agg, g.Bool)
}

func (g *SQLiteGenerator) Insert(meta *types.Meta, values map[string]interface{}) (query.Segment, error) {
	return g.buildInsert(meta, values, g.Bool, true, "DEFAULT VALUES")
}

func (g *SQLiteGenerator) Update(meta *types.Meta, f filter.Filter, values map[string]interface{}) (query.Segment, error) {
	return g.buildUpdate(meta, f, values, g.Bool)
}

func (g *SQLiteGenerator) Delete(meta *types.Meta, f filter.Filter) (query.Segment, error) {
	return g.buildDelete(meta, f, g.Bool)
}

// Returning is supported since SQLite 3.35
func (g *SQLiteGenerator) Returning() bool { return true }

func (g *SQLiteGenerator) LastInsertID() query.Segment {
	return query.NewSegment("SELECT last_insert_rowid()")
}

func (g *SQLiteGenerator) ServerVersion() query.Segment {
	return query.NewSegment("SELECT sqlite_version()")
}

func (g *SQLiteGenerator) Bool(v bool) interface{} { return intBool(v) }

func intBool(v bool) interface{} {
	if v {
		return 1
	}
	return 0
}

// limitOffset renders LIMIT n [OFFSET m]. Values are validated integers and
// are inlined rather than bound.
func limitOffset(stmt *selectStatement, lo *query.LimitOffset) {
	if lo == nil {
		return
	}
	if limit, ok := lo.Limit(); ok {
		stmt.tail = append(stmt.tail, fmt.Sprintf("LIMIT %d", limit))
	}
	if offset, ok := lo.Offset(); ok {
		stmt.tail = append(stmt.tail, fmt.Sprintf("OFFSET %d", offset))
	}
}
