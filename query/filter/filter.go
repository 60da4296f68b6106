// Package filter provides composable predicates used to build WHERE clauses.
//
// A Filter is one of three variants: a ColumnFilter comparing a column to a
// value, a CompositeFilter joining filters with AND or OR, and a RawFilter
// carrying caller supplied SQL. Filters are immutable once constructed.
package filter

import (
	"fmt"
	"reflect"
)

// Filter is a node in a filter tree
type Filter interface {
	// Validate checks the filter and its children without rendering it
	Validate() error
	isFilter()
}

// Col creates a column filter
func Col(column, operation string, value interface{}) (*ColumnFilter, error) {
	return NewColumnFilter(column, operation, value)
}

// MustCol is like Col but panics on error. Intended for static filters.
func MustCol(column, operation string, value interface{}) *ColumnFilter {
	f, err := NewColumnFilter(column, operation, value)
	if err != nil {
		panic(err)
	}
	return f
}

// Raw creates a raw filter
func Raw(condition string, args ...interface{}) *RawFilter {
	return NewRawFilter(condition, args...)
}

// And joins filters with AND
func And(filters ...Filter) *CompositeFilter {
	return &CompositeFilter{operation: OpAnd, filters: copyFilters(filters)}
}

// Or joins filters with OR
func Or(filters ...Filter) *CompositeFilter {
	return &CompositeFilter{operation: OpOr, filters: copyFilters(filters)}
}

// Factory builds a filter from loosely typed arguments:
//
//	Factory(f)                      // an existing Filter
//	Factory("id", "=", 1)           // column filter
//	Factory("email", "is null")     // column filter without a value
//	Factory("lower(name) = 'x'")    // raw filter
//	Factory("lower(name) = ?", []interface{}{"x"}) // raw filter with arguments
func Factory(args ...interface{}) (Filter, error) {
	switch len(args) {
	case 1:
		switch v := args[0].(type) {
		case Filter:
			return v, nil
		case string:
			return NewRawFilter(v), nil
		}
	case 2:
		first, ok := args[0].(string)
		if !ok {
			break
		}
		if second, ok := args[1].(string); ok {
			return column(first, second, nil)
		}
		if isArray(args[1]) {
			return NewRawFilter(first, toSlice(args[1])...), nil
		}
	case 3:
		name, ok1 := args[0].(string)
		operation, ok2 := args[1].(string)
		if ok1 && ok2 {
			return column(name, operation, args[2])
		}
	}

	return nil, fmt.Errorf("%w: invalid filter arguments", ErrInvalidFilter)
}

// column wraps NewColumnFilter so a failed construction yields a nil Filter
// rather than a typed nil pointer.
func column(name, operation string, value interface{}) (Filter, error) {
	f, err := NewColumnFilter(name, operation, value)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func copyFilters(filters []Filter) []Filter {
	copied := make([]Filter, len(filters))
	copy(copied, filters)
	return copied
}

// typeName describes the dynamic type of a value for error messages
func typeName(value interface{}) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}
