package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
	"github.com/phormium-go/phormium/runtime/types"
)

func personMeta(t *testing.T) *types.Meta {
	t.Helper()
	m, err := types.NewMeta("person", "testdb", []string{"id", "name", "email", "income", "is_cool"})
	require.NoError(t, err)
	return m
}

func tradeMeta(t *testing.T) *types.Meta {
	t.Helper()
	m, err := types.NewMeta("trade", "testdb", []string{"tradedate", "tradeno", "price", "quantity"}, "tradedate", "tradeno")
	require.NoError(t, err)
	return m
}

func generator(t *testing.T, dialect string) Generator {
	t.Helper()
	g, err := NewGenerator(dialect)
	require.NoError(t, err)
	return g
}

func limit(t *testing.T, l, o interface{}) *query.LimitOffset {
	t.Helper()
	lo, err := query.NewLimitOffset(l, o)
	require.NoError(t, err)
	return &lo
}

func TestNewGenerator(t *testing.T) {
	tests := map[string]Dialect{
		"postgres":   Postgres,
		"postgresql": Postgres,
		"pgx":        Postgres,
		"MySQL":      MySQL,
		"sqlite3":    SQLite,
		"mssql":      SQLServer,
		"sqlserver":  SQLServer,
	}
	for name, dialect := range tests {
		g := generator(t, name)
		assert.Equal(t, dialect, g.Dialect(), name)
	}

	_, err := NewGenerator("oracle")
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
}

func TestSelect(t *testing.T) {
	meta := personMeta(t)
	g := generator(t, "postgres")

	seg, err := g.Select(meta, SelectSpec{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name", "email", "income", "is_cool" FROM "person"`, seg.SQL)
	assert.Empty(t, seg.Args)

	order, err := query.NewOrderBy(query.Desc("income"), query.Asc("id"))
	require.NoError(t, err)

	seg, err = g.Select(meta, SelectSpec{
		Columns: []string{"id", "name"},
		Filter:  filter.MustCol("name", "like", "a%"),
		Order:   &order,
		Limit:   limit(t, 10, 20),
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name" FROM "person" WHERE "name" LIKE ? ORDER BY "income" DESC, "id" ASC LIMIT 10 OFFSET 20`, seg.SQL)
	assert.Equal(t, []interface{}{"a%"}, seg.Args)

	seg, err = g.Select(meta, SelectSpec{Columns: []string{"name"}, Distinct: true})
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "name" FROM "person"`, seg.SQL)
}

func TestSelectDialects(t *testing.T) {
	meta := personMeta(t)
	spec := SelectSpec{
		Columns: []string{"id"},
		Filter:  filter.MustCol("is_cool", "=", true),
		Limit:   limit(t, 5, nil),
	}

	tests := []struct {
		dialect string
		sql     string
		args    []interface{}
	}{
		{"postgres", `SELECT "id" FROM "person" WHERE "is_cool" = ? LIMIT 5`, []interface{}{true}},
		{"mysql", "SELECT `id` FROM `person` WHERE `is_cool` = ? LIMIT 5", []interface{}{1}},
		{"sqlite", `SELECT "id" FROM "person" WHERE "is_cool" = ? LIMIT 5`, []interface{}{1}},
		{"sqlserver", `SELECT TOP 5 [id] FROM [person] WHERE [is_cool] = ?`, []interface{}{1}},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			seg, err := generator(t, tt.dialect).Select(meta, spec)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, seg.SQL)
			assert.Equal(t, tt.args, seg.Args)
		})
	}
}

func TestSelectSQLServerOffset(t *testing.T) {
	meta := personMeta(t)
	g := generator(t, "sqlserver")

	seg, err := g.Select(meta, SelectSpec{Columns: []string{"id"}, Limit: limit(t, 10, 20)})
	require.NoError(t, err)
	assert.Equal(t, `SELECT [id] FROM [person] ORDER BY (SELECT NULL) OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY`, seg.SQL)

	order, err := query.NewOrderBy(query.Asc("name"))
	require.NoError(t, err)
	seg, err = g.Select(meta, SelectSpec{Columns: []string{"id"}, Order: &order, Limit: limit(t, 10, 0)})
	require.NoError(t, err)
	assert.Equal(t, `SELECT [id] FROM [person] ORDER BY [name] ASC OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY`, seg.SQL)

	seg, err = g.Select(meta, SelectSpec{Columns: []string{"name"}, Distinct: true, Limit: limit(t, 3, nil)})
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT TOP 3 [name] FROM [person]`, seg.SQL)
}

func TestSelectInvalidColumns(t *testing.T) {
	meta := personMeta(t)
	g := generator(t, "postgres")

	_, err := g.Select(meta, SelectSpec{Columns: []string{"xxx"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
	assert.Contains(t, err.Error(), "column [xxx] does not exist in table [person]")

	order, err := query.NewOrderBy(query.Asc("xxx"))
	require.NoError(t, err)
	_, err = g.Select(meta, SelectSpec{Order: &order})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot order by column [xxx] because it does not exist in table [person]")

	_, err = g.Select(meta, SelectSpec{Filter: filter.Or()})
	assert.ErrorIs(t, err, filter.ErrInvalidFilter)
}

func TestAggregate(t *testing.T) {
	meta := tradeMeta(t)
	g := generator(t, "postgres")

	avg, err := query.NewAggregate("avg", "price")
	require.NoError(t, err)
	seg, err := g.Aggregate(meta, filter.MustCol("tradedate", "=", "2013-07-05"), avg)
	require.NoError(t, err)
	assert.Equal(t, `SELECT AVG("price") FROM "trade" WHERE "tradedate" = ?`, seg.SQL)
	assert.Equal(t, []interface{}{"2013-07-05"}, seg.Args)

	count, err := query.NewAggregate("count")
	require.NoError(t, err)
	seg, err = g.Aggregate(meta, nil, count)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "trade"`, seg.SQL)

	invalid, err := query.NewAggregate("max", "xxx")
	require.NoError(t, err)
	_, err = g.Aggregate(meta, nil, invalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
	assert.Contains(t, err.Error(), "error forming aggregate query, column [xxx] does not exist in table [trade]")

	_, err = g.Aggregate(meta, nil, query.Aggregate{})
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
}

func TestInsert(t *testing.T) {
	meta := personMeta(t)

	t.Run("generated primary key with returning", func(t *testing.T) {
		seg, err := generator(t, "postgres").Insert(meta, map[string]interface{}{
			"name":    "Ivan",
			"is_cool": true,
		})
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "person" ("name", "is_cool") VALUES (?, ?) RETURNING "id"`, seg.SQL)
		assert.Equal(t, []interface{}{"Ivan", true}, seg.Args)
	})

	t.Run("generated primary key without returning", func(t *testing.T) {
		seg, err := generator(t, "mysql").Insert(meta, map[string]interface{}{
			"id":      nil,
			"name":    "Ivan",
			"is_cool": false,
		})
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `person` (`name`, `is_cool`) VALUES (?, ?)", seg.SQL)
		assert.Equal(t, []interface{}{"Ivan", 0}, seg.Args)
	})

	t.Run("explicit primary key", func(t *testing.T) {
		values := map[string]interface{}{"id": 10, "name": "Ivan"}
		assert.False(t, NeedsGeneratedPK(meta, values))

		seg, err := generator(t, "sqlite").Insert(meta, values)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "person" ("id", "name") VALUES (?, ?)`, seg.SQL)
		assert.Equal(t, []interface{}{10, "Ivan"}, seg.Args)
	})

	t.Run("default values", func(t *testing.T) {
		seg, err := generator(t, "sqlite").Insert(meta, nil)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "person" DEFAULT VALUES RETURNING "id"`, seg.SQL)

		seg, err = generator(t, "mysql").Insert(meta, nil)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `person` () VALUES ()", seg.SQL)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := generator(t, "postgres").Insert(meta, map[string]interface{}{"xxx": 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot insert, column [xxx] does not exist in table [person]")
	})
}

func TestInsertCompositePK(t *testing.T) {
	meta := tradeMeta(t)
	g := generator(t, "postgres")

	for _, values := range []map[string]interface{}{
		{"price": 1.5},
		{"tradedate": "2013-07-05", "price": 1.5},
		{"tradedate": "2013-07-05", "tradeno": nil},
	} {
		_, err := g.Insert(meta, values)
		require.Error(t, err)
		assert.ErrorIs(t, err, query.ErrInvalidQuery)
		assert.Contains(t, err.Error(), "cannot insert, primary key column(s) not set")
	}

	seg, err := g.Insert(meta, map[string]interface{}{"tradeno": 1, "tradedate": "2013-07-05", "price": 1.5})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "trade" ("tradedate", "tradeno", "price") VALUES (?, ?, ?)`, seg.SQL)
	assert.Equal(t, []interface{}{"2013-07-05", 1, 1.5}, seg.Args)
}

func TestUpdate(t *testing.T) {
	meta := personMeta(t)
	g := generator(t, "postgres")

	seg, err := g.Update(meta, filter.MustCol("id", "=", 5), map[string]interface{}{
		"income": 100,
		"name":   "Ivan",
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "person" SET "name" = ?, "income" = ? WHERE "id" = ?`, seg.SQL)
	assert.Equal(t, []interface{}{"Ivan", 100, 5}, seg.Args)

	// No filter updates the whole table
	seg, err = g.Update(meta, nil, map[string]interface{}{"is_cool": true})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "person" SET "is_cool" = ?`, seg.SQL)

	_, err = g.Update(meta, nil, nil)
	assert.ErrorIs(t, err, query.ErrInvalidQuery)

	_, err = g.Update(meta, nil, map[string]interface{}{"xxx": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot update, column [xxx] does not exist in table [person]")
}

func TestDelete(t *testing.T) {
	meta := personMeta(t)
	g := generator(t, "mysql")

	seg, err := g.Delete(meta, filter.MustCol("id", "in", []int{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `person` WHERE `id` IN (?, ?)", seg.SQL)
	assert.Equal(t, []interface{}{1, 2}, seg.Args)

	// No filter deletes the whole table
	seg, err = g.Delete(meta, nil)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `person`", seg.SQL)
	assert.Empty(t, seg.Args)
}

func TestDialectStatements(t *testing.T) {
	for _, name := range []string{"postgres", "mysql", "sqlite", "sqlserver"} {
		g := generator(t, name)
		assert.NotEmpty(t, g.ServerVersion().SQL, name)
		assert.NotEmpty(t, g.LastInsertID().SQL, name)
	}

	assert.True(t, generator(t, "postgres").Returning())
	assert.True(t, generator(t, "sqlite").Returning())
	assert.False(t, generator(t, "mysql").Returning())
	assert.False(t, generator(t, "sqlserver").Returning())

	assert.Equal(t, true, generator(t, "postgres").Bool(true))
	assert.Equal(t, 0, generator(t, "sqlserver").Bool(false))
}
