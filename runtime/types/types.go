// Package types describes how models map onto database tables.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModel is returned when a schema descriptor cannot be built
var ErrInvalidModel = errors.New("invalid model")

// Meta is the schema descriptor of a model: the table it lives in, the
// named database connection serving it and its columns.
type Meta struct {
	Table    string
	Database string
	Columns  []string
	PK       []string
}

// NewMeta creates a validated schema descriptor. When no primary key is
// given and the table has an "id" column, "id" is used.
func NewMeta(table, database string, columns []string, pk ...string) (*Meta, error) {
	m := &Meta{
		Table:    table,
		Database: database,
		Columns:  append([]string(nil), columns...),
		PK:       append([]string(nil), pk...),
	}
	if len(m.PK) == 0 && m.HasColumn("id") {
		m.PK = []string{"id"}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the descriptor is usable for query generation
func (m *Meta) Validate() error {
	if m.Table == "" {
		return fmt.Errorf("%w: missing table", ErrInvalidModel)
	}
	if m.Database == "" {
		return fmt.Errorf("%w: missing database for table [%s]", ErrInvalidModel, m.Table)
	}
	if len(m.Columns) == 0 {
		return fmt.Errorf("%w: table [%s] has no defined columns", ErrInvalidModel, m.Table)
	}

	seen := make(map[string]bool, len(m.Columns))
	for _, c := range m.Columns {
		if seen[c] {
			return fmt.Errorf("%w: duplicate column [%s] in table [%s]", ErrInvalidModel, c, m.Table)
		}
		seen[c] = true
	}

	var missing []string
	for _, c := range m.PK {
		if !seen[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: specified primary key column(s) do not exist in table [%s]: %s",
			ErrInvalidModel, m.Table, strings.Join(missing, ", "))
	}
	return nil
}

// HasColumn reports whether column belongs to the table
func (m *Meta) HasColumn(column string) bool {
	for _, c := range m.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// IsPK reports whether column is part of the primary key
func (m *Meta) IsPK(column string) bool {
	for _, c := range m.PK {
		if c == column {
			return true
		}
	}
	return false
}

// HasPK reports whether a primary key is defined
func (m *Meta) HasPK() bool {
	return len(m.PK) > 0
}

// NonPKColumns returns the columns not in the primary key, in table order
func (m *Meta) NonPKColumns() []string {
	columns := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		if !m.IsPK(c) {
			columns = append(columns, c)
		}
	}
	return columns
}
