package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	ID      int64   `db:"id"`
	Name    string  `db:"name"`
	Email   *string `db:"email"`
	Income  float64
	ignored string
	Skip    string `db:"-"`
}

func (person) DatabaseName() string { return "testdb" }

type trade struct {
	TradeDate string  `db:"tradedate,pk"`
	TradeNo   int     `db:"tradeno, pk"`
	Price     float64 `db:"price"`
	Quantity  int     `db:"quantity"`
}

func (trade) TableName() string    { return "trade" }
func (trade) DatabaseName() string { return "testdb" }

type nodb struct {
	ID int
}

func TestNewMeta(t *testing.T) {
	t.Run("default primary key", func(t *testing.T) {
		m, err := NewMeta("person", "testdb", []string{"id", "name"})
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, m.PK)
		assert.Equal(t, []string{"name"}, m.NonPKColumns())
		assert.True(t, m.HasPK())
	})

	t.Run("composite primary key", func(t *testing.T) {
		m, err := NewMeta("trade", "testdb", []string{"tradedate", "tradeno", "price", "quantity"}, "tradedate", "tradeno")
		require.NoError(t, err)
		assert.Equal(t, []string{"tradedate", "tradeno"}, m.PK)
		assert.Equal(t, []string{"price", "quantity"}, m.NonPKColumns())
		assert.True(t, m.IsPK("tradeno"))
		assert.False(t, m.IsPK("price"))
	})

	t.Run("no primary key", func(t *testing.T) {
		m, err := NewMeta("pkless", "testdb", []string{"foo", "bar", "baz"})
		require.NoError(t, err)
		assert.False(t, m.HasPK())
		assert.Equal(t, []string{"foo", "bar", "baz"}, m.NonPKColumns())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			table   string
			db      string
			columns []string
			pk      []string
			msg     string
		}{
			{"missing table", "", "db", []string{"a"}, nil, "missing table"},
			{"missing database", "t", "", []string{"a"}, nil, "missing database for table [t]"},
			{"no columns", "t", "db", nil, nil, "table [t] has no defined columns"},
			{"duplicate column", "t", "db", []string{"a", "a"}, nil, "duplicate column [a]"},
			{"missing pk column", "t", "db", []string{"foo"}, []string{"bar"}, "do not exist in table [t]: bar"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewMeta(tt.table, tt.db, tt.columns, tt.pk...)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidModel)
				assert.Contains(t, err.Error(), tt.msg)
			})
		}
	})

	t.Run("columns are copied", func(t *testing.T) {
		columns := []string{"id", "name"}
		m, err := NewMeta("person", "testdb", columns)
		require.NoError(t, err)
		columns[0] = "changed"
		assert.Equal(t, "id", m.Columns[0])
	})
}

func TestMetaOf(t *testing.T) {
	m, err := MetaOf(&person{})
	require.NoError(t, err)
	assert.Equal(t, "person", m.Table)
	assert.Equal(t, "testdb", m.Database)
	assert.Equal(t, []string{"id", "name", "email", "income"}, m.Columns)
	assert.Equal(t, []string{"id"}, m.PK)

	m, err = MetaOf(trade{})
	require.NoError(t, err)
	assert.Equal(t, "trade", m.Table)
	assert.Equal(t, []string{"tradedate", "tradeno"}, m.PK)

	_, err = MetaOf(nodb{})
	assert.ErrorIs(t, err, ErrInvalidModel)

	_, err = MetaOf(42)
	assert.ErrorIs(t, err, ErrInvalidModel)

	_, err = MetaOf(nil)
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	meta, err := NewMeta("pkless", "testdb", []string{"foo", "bar"})
	require.NoError(t, err)
	require.NoError(t, r.Register("pkless", meta))

	got, err := r.Meta("pkless")
	require.NoError(t, err)
	assert.Same(t, meta, got)

	got, err = r.Meta(meta)
	require.NoError(t, err)
	assert.Same(t, meta, got)

	_, err = r.Meta("unknown")
	assert.ErrorIs(t, err, ErrInvalidModel)
	assert.Contains(t, err.Error(), "model [unknown] is not registered")

	first, err := r.Meta(&trade{})
	require.NoError(t, err)
	second, err := r.Meta(trade{})
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.Error(t, r.Register("bad", &Meta{}))
}
