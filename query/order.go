package query

import (
	"fmt"
	"strings"
)

const (
	// Ascending sort direction
	Ascending = "asc"
	// Descending sort direction
	Descending = "desc"
)

// ColumnOrder orders results by a single column
type ColumnOrder struct {
	column    string
	direction string
}

// NewColumnOrder creates a column order. Direction is either "asc" or "desc".
func NewColumnOrder(column, direction string) (ColumnOrder, error) {
	if column == "" {
		return ColumnOrder{}, fmt.Errorf("%w: column order requires a column name", ErrInvalidQuery)
	}

	dir := strings.ToLower(direction)
	if dir != Ascending && dir != Descending {
		return ColumnOrder{}, fmt.Errorf("%w: invalid direction [%s], expected one of [asc, desc]", ErrInvalidQuery, direction)
	}

	return ColumnOrder{column: column, direction: dir}, nil
}

// Asc orders by column ascending
func Asc(column string) ColumnOrder {
	return ColumnOrder{column: column, direction: Ascending}
}

// Desc orders by column descending
func Desc(column string) ColumnOrder {
	return ColumnOrder{column: column, direction: Descending}
}

// Column returns the ordered column
func (o ColumnOrder) Column() string { return o.column }

// Direction returns "asc" or "desc"
func (o ColumnOrder) Direction() string { return o.direction }

// OrderBy is a non-empty ordered list of column orders
type OrderBy struct {
	orders []ColumnOrder
}

// NewOrderBy creates an OrderBy from one or more column orders
func NewOrderBy(orders ...ColumnOrder) (OrderBy, error) {
	if len(orders) == 0 {
		return OrderBy{}, fmt.Errorf("%w: order by needs at least one column order, none given", ErrInvalidQuery)
	}
	for _, order := range orders {
		if order.column == "" || order.direction == "" {
			return OrderBy{}, fmt.Errorf("%w: order by contains an uninitialized column order", ErrInvalidQuery)
		}
	}

	copied := make([]ColumnOrder, len(orders))
	copy(copied, orders)
	return OrderBy{orders: copied}, nil
}

// Orders returns a copy of the column orders
func (o OrderBy) Orders() []ColumnOrder {
	copied := make([]ColumnOrder, len(o.orders))
	copy(copied, o.orders)
	return copied
}

// Len returns the number of column orders
func (o OrderBy) Len() int {
	return len(o.orders)
}

// WithAdded returns a new OrderBy with order appended. The receiver is not modified.
func (o OrderBy) WithAdded(order ColumnOrder) OrderBy {
	orders := make([]ColumnOrder, len(o.orders), len(o.orders)+1)
	copy(orders, o.orders)
	return OrderBy{orders: append(orders, order)}
}
