package sqlgen

import (
	"fmt"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
	"github.com/phormium-go/phormium/runtime/types"
)

// SQLServerGenerator generates SQL Server (T-SQL) queries
type SQLServerGenerator struct{ base }

func (g *SQLServerGenerator) Select(meta *types.Meta, spec SelectSpec) (query.Segment, error) {
	return g.buildSelect(meta, spec, g.Bool, g.paginate)
}

func (g *SQLServerGenerator) Aggregate(meta *types.Meta, f filter.Filter, agg query.Aggregate) (query.Segment, error) {
	return g.buildAggregate(meta, f, agg, g.Bool)
}

func (g *SQLServerGenerator) Insert(meta *types.Meta, values map[string]interface{}) (query.Segment, error) {
	return g.buildInsert(meta, values, g.Bool, false, "DEFAULT VALUES")
}

func (g *SQLServerGenerator) Update(meta *types.Meta, f filter.Filter, values map[string]interface{}) (query.Segment, error) {
	return g.buildUpdate(meta, f, values, g.Bool)
}

func (g *SQLServerGenerator) Delete(meta *types.Meta, f filter.Filter) (query.Segment, error) {
	return g.buildDelete(meta, f, g.Bool)
}

func (g *SQLServerGenerator) Returning() bool { return false }

// LastInsertID reads @@IDENTITY since SCOPE_IDENTITY() does not survive the
// batch boundary of a separately executed statement.
func (g *SQLServerGenerator) LastInsertID() query.Segment {
	return query.NewSegment("SELECT CAST(@@IDENTITY AS BIGINT)")
}

func (g *SQLServerGenerator) ServerVersion() query.Segment {
	return query.NewSegment("SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))")
}

func (g *SQLServerGenerator) Bool(v bool) interface{} { return intBool(v) }

// paginate uses TOP when only a limit is given, OFFSET/FETCH (SQL Server
// 2012+) otherwise. OFFSET requires an ORDER BY clause.
func (g *SQLServerGenerator) paginate(stmt *selectStatement, lo *query.LimitOffset) {
	if lo == nil {
		return
	}
	limit, ok := lo.Limit()
	if !ok {
		return
	}

	offset, ok := lo.Offset()
	if !ok {
		stmt.head += fmt.Sprintf(" TOP %d", limit)
		return
	}

	if stmt.order == "" {
		stmt.order = "ORDER BY (SELECT NULL)"
	}
	stmt.tail = append(stmt.tail, fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit))
}
