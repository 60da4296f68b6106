package query

import (
	"fmt"
	"strings"
)

// AggregateType is an SQL aggregate function
type AggregateType string

const (
	Average AggregateType = "avg"
	Count   AggregateType = "count"
	Max     AggregateType = "max"
	Min     AggregateType = "min"
	Sum     AggregateType = "sum"
)

// Aggregate describes a single aggregate function applied to a column
type Aggregate struct {
	typ    AggregateType
	column string
}

// NewAggregate creates an aggregate. Column is optional for Count and
// defaults to "*"; every other type requires a column.
func NewAggregate(typ string, column ...string) (Aggregate, error) {
	t := AggregateType(strings.ToLower(typ))
	switch t {
	case Average, Count, Max, Min, Sum:
	default:
		return Aggregate{}, fmt.Errorf("%w: invalid aggregate type [%s]", ErrInvalidQuery, typ)
	}

	col := ""
	if len(column) > 0 {
		col = column[0]
	}

	if col == "" {
		if t != Count {
			return Aggregate{}, fmt.Errorf("%w: aggregate type [%s] requires a column to be given", ErrInvalidQuery, t)
		}
		col = "*"
	}

	return Aggregate{typ: t, column: col}, nil
}

// Type returns the aggregate type
func (a Aggregate) Type() AggregateType { return a.typ }

// Column returns the aggregated column, "*" for COUNT(*)
func (a Aggregate) Column() string { return a.column }
