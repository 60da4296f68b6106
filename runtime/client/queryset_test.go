package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
)

func seedPeople(t *testing.T, c *Client) {
	t.Helper()
	insertPeople(t, c,
		query.Row{"name": "Freddie", "email": "freddie@example.com", "income": 100, "is_cool": true},
		query.Row{"name": "Brian", "email": "brian@example.com", "income": 200, "is_cool": true},
		query.Row{"name": "Roger", "income": 300, "is_cool": false},
		query.Row{"name": "John", "income": 300, "is_cool": false},
	)
}

func TestQuerySetImmutable(t *testing.T) {
	c := newTestClient(t)
	qs := c.MustObjects("person")

	filtered, err := qs.Filter("name", "=", "Freddie")
	require.NoError(t, err)
	assert.NotSame(t, qs, filtered)
	assert.Nil(t, qs.GetFilter())
	assert.NotNil(t, filtered.GetFilter())

	ordered, err := filtered.OrderBy("name", "desc")
	require.NoError(t, err)
	assert.Nil(t, filtered.GetOrder())
	require.NotNil(t, ordered.GetOrder())
	assert.Len(t, ordered.GetOrder().Orders(), 1)

	again, err := ordered.OrderBy("id")
	require.NoError(t, err)
	assert.Len(t, ordered.GetOrder().Orders(), 1)
	assert.Len(t, again.GetOrder().Orders(), 2)

	limited, err := again.Limit(10, 20)
	require.NoError(t, err)
	assert.Nil(t, again.GetLimit())
	require.NotNil(t, limited.GetLimit())

	all := limited.All()
	assert.Nil(t, all.GetFilter())
	assert.Nil(t, all.GetOrder())
	assert.Nil(t, all.GetLimit())
	assert.Same(t, qs.Meta(), all.Meta())
}

func TestQuerySetFilterChaining(t *testing.T) {
	c := newTestClient(t)

	first, err := c.MustObjects("person").Filter("name", "=", "Freddie")
	require.NoError(t, err)
	second, err := first.Filter("income", ">", 10)
	require.NoError(t, err)

	composite, ok := second.GetFilter().(*filter.CompositeFilter)
	require.True(t, ok)
	assert.Equal(t, filter.OpAnd, composite.Operation())
	assert.Len(t, composite.Filters(), 2)

	composite, ok = first.GetFilter().(*filter.CompositeFilter)
	require.True(t, ok)
	assert.Len(t, composite.Filters(), 1)
}

func TestQuerySetErrors(t *testing.T) {
	c := newTestClient(t)
	qs := c.MustObjects("person")

	_, err := qs.Filter("nope", "=", 1)
	assert.ErrorIs(t, err, filter.ErrInvalidFilter)
	assert.ErrorContains(t, err, "column [nope] does not exist in table [person]")

	_, err = qs.Filter(filter.Or(filter.MustCol("name", "=", "x"), filter.MustCol("nope", "=", 1)))
	assert.ErrorContains(t, err, "column [nope] does not exist in table [person]")

	_, err = qs.Filter("name", "foo", 1)
	assert.ErrorIs(t, err, filter.ErrInvalidFilter)

	_, err = qs.OrderBy("nope")
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
	assert.ErrorContains(t, err, "cannot order by column [nope] because it does not exist in table [person]")

	_, err = qs.OrderBy("name", "sideways")
	assert.ErrorIs(t, err, query.ErrInvalidQuery)

	_, err = qs.Limit(-1)
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
	_, err = qs.Limit(1, "x")
	assert.ErrorIs(t, err, query.ErrInvalidQuery)

	_, err = qs.Distinct(context.Background())
	assert.ErrorContains(t, err, "no columns given")
}

func TestQuerySetSegment(t *testing.T) {
	c := newTestClient(t)

	qs, err := c.MustObjects("person").Filter("income", ">=", 100)
	require.NoError(t, err)
	qs, err = qs.OrderBy("name")
	require.NoError(t, err)
	qs, err = qs.Limit(5)
	require.NoError(t, err)

	seg, err := qs.Segment(context.Background(), "id", "name")
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name" FROM "person" WHERE ("income" >= ?) ORDER BY "name" ASC LIMIT 5`, seg.SQL)
	assert.Equal(t, []interface{}{100}, seg.Args)
}

func TestFetchOrderedAndLimited(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seedPeople(t, c)

	qs, err := c.MustObjects("person").OrderBy("income", "desc")
	require.NoError(t, err)
	qs, err = qs.OrderBy("name")
	require.NoError(t, err)

	rows, err := qs.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "John", rows[0]["name"])
	assert.Equal(t, "Roger", rows[1]["name"])
	assert.Equal(t, "Freddie", rows[3]["name"])

	limited, err := qs.Limit(2, 1)
	require.NoError(t, err)
	names, err := limited.ValuesFlat(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Roger", "Brian"}, names)

	// Count ignores the limit
	count, err := limited.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestFilterOperations(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seedPeople(t, c)
	qs := c.MustObjects("person")

	tests := []struct {
		name string
		args []interface{}
		want int64
	}{
		{"equals", []interface{}{"name", "=", "Brian"}, 1},
		{"not equals", []interface{}{"name", "!=", "Brian"}, 3},
		{"greater", []interface{}{"income", ">", 100}, 3},
		{"less or equal", []interface{}{"income", "<=", 200}, 2},
		{"in", []interface{}{"name", "in", []interface{}{"Brian", "Roger", "Nobody"}}, 2},
		{"not in", []interface{}{"name", "not in", []interface{}{"Brian", "Roger"}}, 2},
		{"between", []interface{}{"income", "between", []interface{}{150, 300}}, 3},
		{"is null", []interface{}{"email", "is null"}, 2},
		{"is not null", []interface{}{"email", "is not null"}, 2},
		{"like", []interface{}{"name", "like", "%r%"}, 3},
		{"ilike", []interface{}{"name", "ilike", "j%"}, 1},
		{"not like", []interface{}{"name", "not like", "%r%"}, 1},
		{"bool", []interface{}{"is_cool", "=", true}, 2},
		{"raw", []interface{}{"income > ?", []interface{}{250}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered, err := qs.Filter(tt.args...)
			require.NoError(t, err)
			count, err := filtered.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
		})
	}

	filtered, err := qs.Filter(filter.Or(
		filter.MustCol("name", "=", "Freddie"),
		filter.And(filter.MustCol("income", "=", 300), filter.MustCol("name", "like", "J%")),
	))
	require.NoError(t, err)
	names, err := filtered.OrderBy("name")
	require.NoError(t, err)
	values, err := names.ValuesFlat(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Freddie", "John"}, values)
}

func TestSingle(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seedPeople(t, c)
	qs := c.MustObjects("person")

	one, err := qs.Filter("name", "=", "Roger")
	require.NoError(t, err)
	row, err := one.Single(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), row["income"])

	none, err := qs.Filter("name", "=", "Nobody")
	require.NoError(t, err)
	_, err = none.Single(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "query returned 0 rows, requested a single row")

	row, err = none.Single(ctx, true)
	require.NoError(t, err)
	assert.Nil(t, row)

	many, err := qs.Filter("income", "=", 300)
	require.NoError(t, err)
	_, err = many.Single(ctx, true)
	assert.ErrorIs(t, err, ErrMultipleRows)
	assert.ErrorContains(t, err, "query returned 2 rows, requested a single row")
}

func TestExistsAndCount(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	qs := c.MustObjects("person")

	exists, err := qs.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	count, err := qs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	seedPeople(t, c)

	exists, err = qs.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	count, err = qs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestDistinct(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seedPeople(t, c)

	qs, err := c.MustObjects("person").OrderBy("income")
	require.NoError(t, err)

	incomes, err := qs.DistinctFlat(ctx, "income")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(100), int64(200), int64(300)}, incomes)

	qs, err = qs.OrderBy("is_cool")
	require.NoError(t, err)
	rows, err := qs.Distinct(ctx, "income", "is_cool")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, query.Row{"income": int64(300), "is_cool": int64(0)}, rows[2])
}

func TestValues(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seedPeople(t, c)

	qs, err := c.MustObjects("person").Filter("income", "<", 300)
	require.NoError(t, err)
	qs, err = qs.OrderBy("income")
	require.NoError(t, err)

	rows, err := qs.Values(ctx, "name", "income")
	require.NoError(t, err)
	assert.Equal(t, []query.Row{
		{"name": "Freddie", "income": int64(100)},
		{"name": "Brian", "income": int64(200)},
	}, rows)

	list, err := qs.ValuesList(ctx, "income", "name")
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{
		{int64(100), "Freddie"},
		{int64(200), "Brian"},
	}, list)

	all, err := qs.Values(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Len(t, all[0], 5)

	_, err = qs.Values(ctx, "nope")
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seedPeople(t, c)
	qs := c.MustObjects("person")

	uncool, err := qs.Filter("is_cool", "=", false)
	require.NoError(t, err)

	affected, err := uncool.Update(ctx, query.Row{"income": 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	sum, err := qs.Sum(ctx, "income")
	require.NoError(t, err)
	assert.Equal(t, int64(2300), sum)

	_, err = uncool.Update(ctx, query.Row{})
	assert.ErrorContains(t, err, "cannot update, no values given")

	affected, err = uncool.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	affected, err = qs.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	count, err := qs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAggregates(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	qs := c.MustObjects("person")

	empty, err := qs.Max(ctx, "income")
	require.NoError(t, err)
	assert.Nil(t, empty)

	seedPeople(t, c)

	avg, err := qs.Avg(ctx, "income")
	require.NoError(t, err)
	assert.Equal(t, 225.0, avg)

	lowest, err := qs.Min(ctx, "income")
	require.NoError(t, err)
	assert.Equal(t, int64(100), lowest)

	highest, err := qs.Max(ctx, "income")
	require.NoError(t, err)
	assert.Equal(t, int64(300), highest)

	cool, err := qs.Filter("is_cool", "=", true)
	require.NoError(t, err)
	sum, err := cool.Aggregate(ctx, query.Sum, "income")
	require.NoError(t, err)
	assert.Equal(t, int64(300), sum)

	_, err = qs.Sum(ctx, "nope")
	assert.ErrorContains(t, err, "error forming aggregate query, column [nope] does not exist in table [person]")
}

func TestEach(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seedPeople(t, c)

	qs, err := c.MustObjects("person").OrderBy("id")
	require.NoError(t, err)

	var names []string
	err = qs.Each(ctx, func(row query.Row) error {
		names = append(names, row["name"].(string))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Freddie", "Brian", "Roger", "John"}, names)
}

func TestScanFetchedRows(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seedPeople(t, c)

	qs, err := c.MustObjects(Person{}).OrderBy("id")
	require.NoError(t, err)
	rows, err := qs.Fetch(ctx)
	require.NoError(t, err)

	people, err := ScanRows[Person](rows)
	require.NoError(t, err)
	require.Len(t, people, 4)
	assert.Equal(t, "Freddie", people[0].Name)
	require.NotNil(t, people[0].Email)
	assert.Equal(t, "freddie@example.com", *people[0].Email)
	assert.True(t, people[0].IsCool)
	assert.Nil(t, people[2].Email)
	assert.False(t, people[2].IsCool)
}
