package filter

import (
	"fmt"
	"strings"
)

// CompositeOperation joins the children of a composite filter
type CompositeOperation string

const (
	OpAnd CompositeOperation = "AND"
	OpOr  CompositeOperation = "OR"
)

// CompositeFilter joins child filters with AND or OR
type CompositeFilter struct {
	operation CompositeOperation
	filters   []Filter
}

// NewComposite creates a composite filter. The operation is case-insensitive.
// A composite may be created empty, but must have at least one child when rendered.
func NewComposite(operation string, filters ...Filter) (*CompositeFilter, error) {
	op := CompositeOperation(strings.ToUpper(operation))
	if op != OpAnd && op != OpOr {
		return nil, fmt.Errorf("%w: invalid composite filter operation [%s], expected AND or OR", ErrInvalidFilter, operation)
	}
	for _, f := range filters {
		if f == nil {
			return nil, fmt.Errorf("%w: composite filter cannot contain a nil filter", ErrInvalidFilter)
		}
	}
	return &CompositeFilter{operation: op, filters: copyFilters(filters)}, nil
}

func (*CompositeFilter) isFilter() {}

// Operation returns AND or OR
func (f *CompositeFilter) Operation() CompositeOperation { return f.operation }

// Filters returns a copy of the child filters
func (f *CompositeFilter) Filters() []Filter { return copyFilters(f.filters) }

// Len returns the number of child filters
func (f *CompositeFilter) Len() int { return len(f.filters) }

// WithAdded returns a new composite with filter appended. The receiver is not modified.
func (f *CompositeFilter) WithAdded(filter Filter) *CompositeFilter {
	filters := make([]Filter, len(f.filters), len(f.filters)+1)
	copy(filters, f.filters)
	return &CompositeFilter{operation: f.operation, filters: append(filters, filter)}
}

// Validate implements Filter. Children are validated recursively.
func (f *CompositeFilter) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil composite filter", ErrInvalidFilter)
	}
	if f.operation != OpAnd && f.operation != OpOr {
		return fmt.Errorf("%w: invalid composite filter operation [%s], expected AND or OR", ErrInvalidFilter, f.operation)
	}
	if len(f.filters) == 0 {
		return fmt.Errorf("%w: cannot render composite filter, no filters defined", ErrInvalidFilter)
	}
	for _, child := range f.filters {
		if child == nil {
			return fmt.Errorf("%w: composite filter cannot contain a nil filter", ErrInvalidFilter)
		}
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}
