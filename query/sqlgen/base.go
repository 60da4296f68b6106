package sqlgen

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
	"github.com/phormium-go/phormium/runtime/types"
)

// paginator adds the dialect's LIMIT/OFFSET form to a select statement
type paginator func(stmt *selectStatement, lo *query.LimitOffset)

// selectStatement holds the clauses of a SELECT while pagination is applied
type selectStatement struct {
	head    string
	columns string
	from    string
	where   query.Segment
	order   string
	tail    []string
}

func (s *selectStatement) segment() query.Segment {
	return query.Reduce(
		query.NewSegment(fmt.Sprintf("%s %s FROM %s", s.head, s.columns, s.from)),
		s.where,
		query.NewSegment(s.order),
		query.NewSegment(strings.Join(s.tail, " ")),
	)
}

// base holds the statement building shared by all dialects
type base struct {
	dialect  Dialect
	quoter   Quoter
	renderer *FilterRenderer
}

func newBase(dialect Dialect, quoter Quoter) base {
	return base{dialect: dialect, quoter: quoter, renderer: NewFilterRenderer(quoter)}
}

// Dialect returns the generated dialect
func (b *base) Dialect() Dialect { return b.dialect }

// Quoter returns the identifier quoter
func (b *base) Quoter() Quoter { return b.quoter }

func (b *base) buildSelect(meta *types.Meta, spec SelectSpec, toBool func(bool) interface{}, paginate paginator) (query.Segment, error) {
	columns := spec.Columns
	if len(columns) == 0 {
		columns = meta.Columns
	}
	for _, c := range columns {
		if !meta.HasColumn(c) {
			return query.Segment{}, fmt.Errorf("%w: column [%s] does not exist in table [%s]", query.ErrInvalidQuery, c, meta.Table)
		}
	}

	stmt := &selectStatement{
		head:    "SELECT",
		columns: b.quoteAll(columns),
		from:    b.quoter.Quote(meta.Table),
	}
	if spec.Distinct {
		stmt.head += " DISTINCT"
	}

	where, err := b.where(spec.Filter)
	if err != nil {
		return query.Segment{}, err
	}
	stmt.where = where

	if spec.Order != nil && spec.Order.Len() > 0 {
		order, err := b.orderBy(meta, *spec.Order)
		if err != nil {
			return query.Segment{}, err
		}
		stmt.order = order
	}

	paginate(stmt, spec.Limit)
	return bindBools(stmt.segment(), toBool), nil
}

func (b *base) buildInsert(meta *types.Meta, values map[string]interface{}, toBool func(bool) interface{}, returning bool, emptyValues string) (query.Segment, error) {
	for _, c := range slices.Sorted(maps.Keys(values)) {
		if !meta.HasColumn(c) {
			return query.Segment{}, fmt.Errorf("%w: cannot insert, column [%s] does not exist in table [%s]", query.ErrInvalidQuery, c, meta.Table)
		}
	}

	// Composite keys are never generated
	if len(meta.PK) > 1 {
		for _, pk := range meta.PK {
			if v, ok := values[pk]; !ok || v == nil {
				return query.Segment{}, fmt.Errorf("%w: cannot insert, primary key column(s) not set", query.ErrInvalidQuery)
			}
		}
	}

	generated := NeedsGeneratedPK(meta, values)

	var columns []string
	var args []interface{}
	for _, c := range meta.Columns {
		if generated && c == meta.PK[0] {
			continue
		}
		if v, ok := values[c]; ok {
			columns = append(columns, c)
			args = append(args, v)
		}
	}

	sql := "INSERT INTO " + b.quoter.Quote(meta.Table)
	if len(columns) == 0 {
		sql += " " + emptyValues
	} else {
		sql += fmt.Sprintf(" (%s) VALUES (%s)", b.quoteAll(columns), placeholders(len(columns)))
	}
	if returning && generated {
		sql += " RETURNING " + b.quoter.Quote(meta.PK[0])
	}

	return bindBools(query.NewSegment(sql, args...), toBool), nil
}

func (b *base) buildUpdate(meta *types.Meta, f filter.Filter, values map[string]interface{}, toBool func(bool) interface{}) (query.Segment, error) {
	if len(values) == 0 {
		return query.Segment{}, fmt.Errorf("%w: cannot update, no values given", query.ErrInvalidQuery)
	}
	for _, c := range slices.Sorted(maps.Keys(values)) {
		if !meta.HasColumn(c) {
			return query.Segment{}, fmt.Errorf("%w: cannot update, column [%s] does not exist in table [%s]", query.ErrInvalidQuery, c, meta.Table)
		}
	}

	var sets []string
	var args []interface{}
	for _, c := range meta.Columns {
		if v, ok := values[c]; ok {
			sets = append(sets, b.quoter.Quote(c)+" = ?")
			args = append(args, v)
		}
	}

	where, err := b.where(f)
	if err != nil {
		return query.Segment{}, err
	}

	update := query.NewSegment(fmt.Sprintf("UPDATE %s SET %s", b.quoter.Quote(meta.Table), strings.Join(sets, ", ")), args...)
	return bindBools(query.Reduce(update, where), toBool), nil
}

// buildDelete renders a DELETE. Without a filter the whole table is deleted.
func (b *base) buildDelete(meta *types.Meta, f filter.Filter, toBool func(bool) interface{}) (query.Segment, error) {
	where, err := b.where(f)
	if err != nil {
		return query.Segment{}, err
	}
	del := query.NewSegment("DELETE FROM " + b.quoter.Quote(meta.Table))
	return bindBools(query.Reduce(del, where), toBool), nil
}

// where renders the WHERE clause for f, or an empty segment when f is nil
func (b *base) where(f filter.Filter) (query.Segment, error) {
	if f == nil {
		return query.NewSegment(""), nil
	}
	rendered, err := b.renderer.RenderFilter(f)
	if err != nil {
		return query.Segment{}, err
	}
	return query.NewSegment("WHERE "+rendered.SQL, rendered.Args...), nil
}

func (b *base) orderBy(meta *types.Meta, order query.OrderBy) (string, error) {
	orders := order.Orders()
	parts := make([]string, len(orders))
	for i, o := range orders {
		if !meta.HasColumn(o.Column()) {
			return "", fmt.Errorf("%w: cannot order by column [%s] because it does not exist in table [%s]",
				query.ErrInvalidQuery, o.Column(), meta.Table)
		}
		parts[i] = b.quoter.Quote(o.Column()) + " " + strings.ToUpper(o.Direction())
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

func (b *base) quoteAll(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = b.quoter.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// bindBools replaces boolean arguments with the dialect's representation
func bindBools(seg query.Segment, toBool func(bool) interface{}) query.Segment {
	for i, arg := range seg.Args {
		if v, ok := arg.(bool); ok {
			seg.Args[i] = toBool(v)
		}
	}
	return seg
}
