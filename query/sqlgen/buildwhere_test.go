package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
)

func render(t *testing.T, f filter.Filter) query.Segment {
	t.Helper()
	seg, err := NewFilterRenderer(DoubleQuoter{}).RenderFilter(f)
	require.NoError(t, err)
	return seg
}

func TestRenderCompositeOr(t *testing.T) {
	f := filter.Or(
		filter.MustCol("id", "=", 1),
		filter.MustCol("id", "=", 2),
		filter.MustCol("id", "=", 3),
	)

	expected := query.NewSegment(`("id" = ? OR "id" = ? OR "id" = ?)`, 1, 2, 3)
	assert.Equal(t, expected, render(t, f))
}

func TestRenderCompositeFromFactory(t *testing.T) {
	var children []filter.Filter
	for _, id := range []int{1, 2, 3} {
		f, err := filter.Factory("id", "=", id)
		require.NoError(t, err)
		children = append(children, f)
	}

	f, err := filter.NewComposite("or", children...)
	require.NoError(t, err)

	expected := query.NewSegment(`("id" = ? OR "id" = ? OR "id" = ?)`, 1, 2, 3)
	assert.Equal(t, expected, render(t, f))
}

func TestRenderEmptyComposite(t *testing.T) {
	_, err := NewFilterRenderer(DoubleQuoter{}).RenderFilter(filter.And())
	require.Error(t, err)
	assert.ErrorIs(t, err, filter.ErrInvalidFilter)
	assert.Contains(t, err.Error(), "cannot render composite filter, no filters defined")
}

func TestRenderNilFilter(t *testing.T) {
	_, err := NewFilterRenderer(DoubleQuoter{}).RenderFilter(nil)
	assert.ErrorIs(t, err, filter.ErrInvalidFilter)
}

func TestRenderRawFilter(t *testing.T) {
	f := filter.Raw("lower(name) = ?", "foo")
	assert.Equal(t, query.NewSegment("lower(name) = ?", "foo"), render(t, f))
}

func TestRenderColumnFilters(t *testing.T) {
	tests := []struct {
		name     string
		filter   *filter.ColumnFilter
		expected query.Segment
	}{
		{"equals", filter.MustCol("id", "=", 1), query.NewSegment(`"id" = ?`, 1)},
		{"not equals", filter.MustCol("id", "<>", 1), query.NewSegment(`"id" <> ?`, 1)},
		{"greater", filter.MustCol("id", ">", 1), query.NewSegment(`"id" > ?`, 1)},
		{"like", filter.MustCol("name", "like", "a%"), query.NewSegment(`"name" LIKE ?`, "a%")},
		{"not like", filter.MustCol("name", "not like", "a%"), query.NewSegment(`"name" NOT LIKE ?`, "a%")},
		{"ilike", filter.MustCol("name", "ilike", "A%"), query.NewSegment(`lower("name") LIKE lower(?)`, "A%")},
		{"in", filter.MustCol("id", "in", []int{1, 2, 3}), query.NewSegment(`"id" IN (?, ?, ?)`, 1, 2, 3)},
		{"not in", filter.MustCol("id", "not in", []int{4}), query.NewSegment(`"id" NOT IN (?)`, 4)},
		{"between", filter.MustCol("id", "between", []int{1, 9}), query.NewSegment(`"id" BETWEEN ? AND ?`, 1, 9)},
		{"is null", filter.MustCol("email", "is null", nil), query.NewSegment(`"email" IS NULL`)},
		{"is not null", filter.MustCol("email", "is not null", nil), query.NewSegment(`"email" IS NOT NULL`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := render(t, tt.filter)
			assert.Equal(t, tt.expected, seg)
			assert.Equal(t, seg.Placeholders(), len(seg.Args))
		})
	}
}

func TestRenderNested(t *testing.T) {
	f := filter.And(
		filter.MustCol("name", "like", "a%"),
		filter.Or(
			filter.MustCol("id", "in", []int{1, 2}),
			filter.Raw("income > ?", 100),
		),
		filter.MustCol("email", "is not null", nil),
	)

	expected := query.NewSegment(
		`("name" LIKE ? AND ("id" IN (?, ?) OR income > ?) AND "email" IS NOT NULL)`,
		"a%", 1, 2, 100,
	)

	first := render(t, f)
	assert.Equal(t, expected, first)

	// Rendering has no side effects
	assert.Equal(t, first, render(t, f))
}

func TestRenderQuoting(t *testing.T) {
	f := filter.MustCol(`we"ird`, "=", 1)

	tests := []struct {
		quoter   Quoter
		expected string
	}{
		{DoubleQuoter{}, `"we""ird" = ?`},
		{BacktickQuoter{}, "`we\"ird` = ?"},
		{BracketQuoter{}, `[we"ird] = ?`},
	}
	for _, tt := range tests {
		seg, err := NewFilterRenderer(tt.quoter).RenderFilter(f)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, seg.SQL)
	}
}

func TestQuoters(t *testing.T) {
	assert.Equal(t, "*", DoubleQuoter{}.Quote("*"))
	assert.Equal(t, "`a``b`", BacktickQuoter{}.Quote("a`b"))
	assert.Equal(t, "[a]]b]", BracketQuoter{}.Quote("a]b"))
}
