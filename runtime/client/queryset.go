package client

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
	"github.com/phormium-go/phormium/query/sqlgen"
	"github.com/phormium-go/phormium/runtime/types"
)

// QuerySet is an immutable query over the rows of one model. Builder
// methods return a new QuerySet and leave the receiver untouched, so a
// QuerySet can be shared and refined freely.
type QuerySet struct {
	client *Client
	meta   *types.Meta
	filter *filter.CompositeFilter
	order  *query.OrderBy
	limit  *query.LimitOffset
}

func newQuerySet(c *Client, meta *types.Meta) *QuerySet {
	return &QuerySet{client: c, meta: meta}
}

func (qs *QuerySet) clone() *QuerySet {
	copied := *qs
	return &copied
}

// All returns an unfiltered, unordered and unlimited copy
func (qs *QuerySet) All() *QuerySet {
	return newQuerySet(qs.client, qs.meta)
}

// Filter returns a copy with an additional filter ANDed to the existing
// ones. Arguments are passed to filter.Factory.
func (qs *QuerySet) Filter(args ...interface{}) (*QuerySet, error) {
	f, err := filter.Factory(args...)
	if err != nil {
		return nil, err
	}
	if err := qs.checkColumns(f); err != nil {
		return nil, err
	}

	next := qs.clone()
	if qs.filter == nil {
		next.filter = filter.And(f)
	} else {
		next.filter = qs.filter.WithAdded(f)
	}
	return next, nil
}

// checkColumns verifies every column filter in the tree names a column of
// the model. Raw filters are not inspected.
func (qs *QuerySet) checkColumns(f filter.Filter) error {
	switch f := f.(type) {
	case *filter.ColumnFilter:
		if !qs.meta.HasColumn(f.Column()) {
			return fmt.Errorf("%w: column [%s] does not exist in table [%s]", filter.ErrInvalidFilter, f.Column(), qs.meta.Table)
		}
	case *filter.CompositeFilter:
		for _, child := range f.Filters() {
			if err := qs.checkColumns(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// OrderBy returns a copy additionally ordered by column. Direction defaults
// to ascending.
func (qs *QuerySet) OrderBy(column string, direction ...string) (*QuerySet, error) {
	dir := query.Ascending
	if len(direction) > 0 {
		dir = direction[0]
	}

	order, err := query.NewColumnOrder(column, dir)
	if err != nil {
		return nil, err
	}
	if !qs.meta.HasColumn(column) {
		return nil, fmt.Errorf("%w: cannot order by column [%s] because it does not exist in table [%s]", query.ErrInvalidQuery, column, qs.meta.Table)
	}

	var orderBy query.OrderBy
	if qs.order == nil {
		orderBy, err = query.NewOrderBy(order)
		if err != nil {
			return nil, err
		}
	} else {
		orderBy = qs.order.WithAdded(order)
	}

	next := qs.clone()
	next.order = &orderBy
	return next, nil
}

// Limit returns a copy returning at most limit rows, skipping the first
// offset rows. Either may be nil.
func (qs *QuerySet) Limit(limit interface{}, offset ...interface{}) (*QuerySet, error) {
	var off interface{}
	if len(offset) > 0 {
		off = offset[0]
	}

	lo, err := query.NewLimitOffset(limit, off)
	if err != nil {
		return nil, err
	}

	next := qs.clone()
	next.limit = &lo
	return next, nil
}

// GetFilter returns the filter, nil when none is set
func (qs *QuerySet) GetFilter() filter.Filter {
	if qs.filter == nil {
		return nil
	}
	return qs.filter
}

// GetOrder returns the ordering, nil when none is set
func (qs *QuerySet) GetOrder() *query.OrderBy {
	if qs.order == nil {
		return nil
	}
	order := *qs.order
	return &order
}

// GetLimit returns the limit, nil when none is set
func (qs *QuerySet) GetLimit() *query.LimitOffset {
	if qs.limit == nil {
		return nil
	}
	limit := *qs.limit
	return &limit
}

// Meta returns the schema descriptor of the model
func (qs *QuerySet) Meta() *types.Meta {
	return qs.meta
}

func (qs *QuerySet) spec(columns []string, distinct bool) sqlgen.SelectSpec {
	if len(columns) == 0 {
		columns = qs.meta.Columns
	}
	return sqlgen.SelectSpec{
		Columns:  columns,
		Distinct: distinct,
		Filter:   qs.GetFilter(),
		Order:    qs.order,
		Limit:    qs.limit,
	}
}

// Segment returns the SELECT statement for the given columns, all columns
// when none are given, in the dialect of the model's connection.
func (qs *QuerySet) Segment(ctx context.Context, columns ...string) (query.Segment, error) {
	_, gen, err := qs.client.connection(ctx, qs.meta)
	if err != nil {
		return query.Segment{}, err
	}
	return gen.Select(qs.meta, qs.spec(columns, false))
}

func (qs *QuerySet) selectRows(ctx context.Context, operation string, spec sqlgen.SelectSpec) ([]query.Row, error) {
	var rows []query.Row
	_, err := qs.client.extensions.ExecuteQuery(ctx, qs.meta.Table, operation, spec, func() (interface{}, error) {
		conn, gen, err := qs.client.connection(ctx, qs.meta)
		if err != nil {
			return nil, err
		}
		seg, err := gen.Select(qs.meta, spec)
		if err != nil {
			return nil, err
		}
		rows, err = conn.PreparedQuery(ctx, seg)
		return rows, err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Fetch returns all matching rows
func (qs *QuerySet) Fetch(ctx context.Context) ([]query.Row, error) {
	return qs.selectRows(ctx, OpFetch, qs.spec(nil, false))
}

// Each streams matching rows to fn without loading them all at once.
// Iteration stops at the first error returned by fn.
func (qs *QuerySet) Each(ctx context.Context, fn func(query.Row) error) error {
	spec := qs.spec(nil, false)
	_, err := qs.client.extensions.ExecuteQuery(ctx, qs.meta.Table, OpIterate, spec, func() (interface{}, error) {
		conn, gen, err := qs.client.connection(ctx, qs.meta)
		if err != nil {
			return nil, err
		}
		seg, err := gen.Select(qs.meta, spec)
		if err != nil {
			return nil, err
		}
		return nil, conn.PreparedIterate(ctx, seg, fn)
	})
	return err
}

// Single returns the only matching row. It fails when several rows match,
// and when none match unless allowEmpty is given, in which case it
// returns nil.
func (qs *QuerySet) Single(ctx context.Context, allowEmpty ...bool) (query.Row, error) {
	rows, err := qs.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case len(rows) == 1:
		return rows[0], nil
	case len(rows) == 0 && len(allowEmpty) > 0 && allowEmpty[0]:
		return nil, nil
	case len(rows) == 0:
		return nil, fmt.Errorf("%w: query returned 0 rows, requested a single row", ErrNotFound)
	}
	return nil, fmt.Errorf("%w: query returned %d rows, requested a single row", ErrMultipleRows, len(rows))
}

// Count returns the number of matching rows. The limit is not applied.
func (qs *QuerySet) Count(ctx context.Context) (int64, error) {
	agg, err := query.NewAggregate(string(query.Count))
	if err != nil {
		return 0, err
	}

	value, err := qs.aggregate(ctx, OpCount, agg)
	if err != nil {
		return 0, err
	}
	return cast.ToInt64E(value)
}

// Exists reports whether any row matches
func (qs *QuerySet) Exists(ctx context.Context) (bool, error) {
	lo, err := query.NewLimitOffset(1, nil)
	if err != nil {
		return false, err
	}

	spec := qs.spec(qs.meta.Columns[:1], false)
	spec.Order = nil
	spec.Limit = &lo

	rows, err := qs.selectRows(ctx, OpExists, spec)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Distinct returns the distinct combinations of the given columns
func (qs *QuerySet) Distinct(ctx context.Context, columns ...string) ([]query.Row, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns given", query.ErrInvalidQuery)
	}
	return qs.selectRows(ctx, OpDistinct, qs.spec(columns, true))
}

// DistinctFlat returns the distinct values of a single column
func (qs *QuerySet) DistinctFlat(ctx context.Context, column string) ([]interface{}, error) {
	rows, err := qs.Distinct(ctx, column)
	if err != nil {
		return nil, err
	}
	return flatten(rows, column), nil
}

// Values returns the given columns of every matching row, all columns
// when none are given.
func (qs *QuerySet) Values(ctx context.Context, columns ...string) ([]query.Row, error) {
	return qs.selectRows(ctx, OpValues, qs.spec(columns, false))
}

// ValuesList is like Values but returns each row as a list ordered like
// columns.
func (qs *QuerySet) ValuesList(ctx context.Context, columns ...string) ([][]interface{}, error) {
	if len(columns) == 0 {
		columns = qs.meta.Columns
	}

	rows, err := qs.Values(ctx, columns...)
	if err != nil {
		return nil, err
	}

	list := make([][]interface{}, len(rows))
	for i, row := range rows {
		values := make([]interface{}, len(columns))
		for j, column := range columns {
			values[j] = row[column]
		}
		list[i] = values
	}
	return list, nil
}

// ValuesFlat returns the values of a single column
func (qs *QuerySet) ValuesFlat(ctx context.Context, column string) ([]interface{}, error) {
	rows, err := qs.Values(ctx, column)
	if err != nil {
		return nil, err
	}
	return flatten(rows, column), nil
}

func flatten(rows []query.Row, column string) []interface{} {
	values := make([]interface{}, len(rows))
	for i, row := range rows {
		values[i] = row[column]
	}
	return values
}

// Update sets values on every matching row and returns the number of
// affected rows. Without a filter every row in the table is updated.
func (qs *QuerySet) Update(ctx context.Context, values map[string]interface{}) (int64, error) {
	return qs.mutate(ctx, OpUpdate, values, func(gen sqlgen.Generator) (query.Segment, error) {
		return gen.Update(qs.meta, qs.GetFilter(), values)
	})
}

// Delete deletes every matching row and returns the number of affected
// rows. Without a filter every row in the table is deleted.
func (qs *QuerySet) Delete(ctx context.Context) (int64, error) {
	return qs.mutate(ctx, OpDelete, nil, func(gen sqlgen.Generator) (query.Segment, error) {
		return gen.Delete(qs.meta, qs.GetFilter())
	})
}

func (qs *QuerySet) mutate(ctx context.Context, operation string, args interface{}, build func(sqlgen.Generator) (query.Segment, error)) (int64, error) {
	var affected int64
	_, err := qs.client.extensions.ExecuteMutation(ctx, qs.meta.Table, operation, args, func() (interface{}, error) {
		conn, gen, err := qs.client.connection(ctx, qs.meta)
		if err != nil {
			return nil, err
		}
		seg, err := build(gen)
		if err != nil {
			return nil, err
		}
		affected, err = conn.PreparedExecute(ctx, seg)
		return affected, err
	})
	return affected, err
}

// Avg returns the average of column over the matching rows
func (qs *QuerySet) Avg(ctx context.Context, column string) (interface{}, error) {
	return qs.Aggregate(ctx, query.Average, column)
}

// Min returns the minimum of column over the matching rows
func (qs *QuerySet) Min(ctx context.Context, column string) (interface{}, error) {
	return qs.Aggregate(ctx, query.Min, column)
}

// Max returns the maximum of column over the matching rows
func (qs *QuerySet) Max(ctx context.Context, column string) (interface{}, error) {
	return qs.Aggregate(ctx, query.Max, column)
}

// Sum returns the sum of column over the matching rows
func (qs *QuerySet) Sum(ctx context.Context, column string) (interface{}, error) {
	return qs.Aggregate(ctx, query.Sum, column)
}

// Aggregate applies an aggregate function to column over the matching rows.
// The result is nil when no rows match, except for COUNT.
func (qs *QuerySet) Aggregate(ctx context.Context, typ query.AggregateType, column string) (interface{}, error) {
	agg, err := query.NewAggregate(string(typ), column)
	if err != nil {
		return nil, err
	}
	return qs.aggregate(ctx, OpAggregate, agg)
}

func (qs *QuerySet) aggregate(ctx context.Context, operation string, agg query.Aggregate) (interface{}, error) {
	return qs.client.extensions.ExecuteQuery(ctx, qs.meta.Table, operation, agg, func() (interface{}, error) {
		conn, gen, err := qs.client.connection(ctx, qs.meta)
		if err != nil {
			return nil, err
		}
		seg, err := gen.Aggregate(qs.meta, qs.GetFilter(), agg)
		if err != nil {
			return nil, err
		}

		rows, err := conn.PreparedQuery(ctx, seg)
		if err != nil {
			return nil, err
		}
		if len(rows) != 1 || len(rows[0]) != 1 {
			return nil, fmt.Errorf("%w: aggregate query returned an unexpected result", query.ErrInvalidQuery)
		}
		for _, value := range rows[0] {
			return value, nil
		}
		return nil, nil
	})
}
