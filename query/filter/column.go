package filter

import (
	"fmt"
	"strings"
)

// Operation is a column filter operation
type Operation string

const (
	OpEquals         Operation = "="
	OpNotEquals      Operation = "!="
	OpNotEqualsAlt   Operation = "<>"
	OpGreater        Operation = ">"
	OpGreaterOrEqual Operation = ">="
	OpLesser         Operation = "<"
	OpLesserOrEqual  Operation = "<="
	OpLike           Operation = "LIKE"
	OpILike          Operation = "ILIKE"
	OpNotLike        Operation = "NOT LIKE"
	OpIn             Operation = "IN"
	OpNotIn          Operation = "NOT IN"
	OpBetween        Operation = "BETWEEN"
	OpIsNull         Operation = "IS NULL"
	OpNotNull        Operation = "IS NOT NULL"
)

// validators maps every known operation to the check applied to its value
var validators = map[Operation]func(op Operation, value interface{}) error{
	OpEquals:         requireScalar,
	OpNotEquals:      requireScalar,
	OpNotEqualsAlt:   requireScalar,
	OpGreater:        requireScalar,
	OpGreaterOrEqual: requireScalar,
	OpLesser:         requireScalar,
	OpLesserOrEqual:  requireScalar,
	OpLike:           requireScalar,
	OpILike:          requireScalar,
	OpNotLike:        requireScalar,
	OpIn:             requireNonEmptyArray,
	OpNotIn:          requireNonEmptyArray,
	OpBetween:        requirePair,
	OpIsNull:         requireNone,
	OpNotNull:        requireNone,
}

// ParseOperation normalizes op to upper case and checks it is known
func ParseOperation(op string) (Operation, error) {
	normalized := Operation(strings.ToUpper(strings.Join(strings.Fields(op), " ")))
	if _, ok := validators[normalized]; !ok {
		return "", fmt.Errorf("%w: unknown filter operation [%s]", ErrInvalidFilter, strings.ToUpper(op))
	}
	return normalized, nil
}

// IsArray reports whether the operation takes a list of values
func (op Operation) IsArray() bool {
	return op == OpIn || op == OpNotIn || op == OpBetween
}

// IsUnary reports whether the operation takes no value
func (op Operation) IsUnary() bool {
	return op == OpIsNull || op == OpNotNull
}

// Validate checks value against the shape required by the operation
func (op Operation) Validate(value interface{}) error {
	validate, ok := validators[op]
	if !ok {
		return fmt.Errorf("%w: unknown filter operation [%s]", ErrInvalidFilter, op)
	}
	return validate(op, value)
}

func requireScalar(op Operation, value interface{}) error {
	if shapeOf(value) != shapeScalar {
		return fmt.Errorf("%w: filter %s requires a scalar value, %s given", ErrInvalidFilter, op, typeName(value))
	}
	return nil
}

func requireArray(op Operation, value interface{}) error {
	if shapeOf(value) != shapeArray {
		return fmt.Errorf("%w: filter %s requires an array, %s given", ErrInvalidFilter, op, typeName(value))
	}
	return nil
}

func requireNonEmptyArray(op Operation, value interface{}) error {
	if err := requireArray(op, value); err != nil {
		return err
	}
	if len(toSlice(value)) == 0 {
		return fmt.Errorf("%w: filter %s requires a non-empty array, empty array given", ErrInvalidFilter, op)
	}
	return nil
}

func requirePair(op Operation, value interface{}) error {
	if err := requireArray(op, value); err != nil {
		return err
	}
	if n := len(toSlice(value)); n != 2 {
		return fmt.Errorf("%w: filter %s requires an array with 2 values, given array has %d values", ErrInvalidFilter, op, n)
	}
	return nil
}

func requireNone(op Operation, value interface{}) error {
	if value != nil {
		return fmt.Errorf("%w: filter %s does not take a value, %s given", ErrInvalidFilter, op, typeName(value))
	}
	return nil
}

// ColumnFilter compares a column against a value
type ColumnFilter struct {
	column    string
	operation Operation
	value     interface{}
}

// NewColumnFilter creates a column filter, validating the operation and the
// shape of value. Array values are copied into a []interface{}.
func NewColumnFilter(column, operation string, value interface{}) (*ColumnFilter, error) {
	if column == "" {
		return nil, fmt.Errorf("%w: column filter requires a column name", ErrInvalidFilter)
	}

	op, err := ParseOperation(operation)
	if err != nil {
		return nil, err
	}

	if err := op.Validate(value); err != nil {
		return nil, err
	}

	if op.IsArray() {
		value = toSlice(value)
	}

	return &ColumnFilter{column: column, operation: op, value: value}, nil
}

func (*ColumnFilter) isFilter() {}

// Column returns the filtered column
func (f *ColumnFilter) Column() string { return f.column }

// Operation returns the normalized operation
func (f *ColumnFilter) Operation() Operation { return f.operation }

// Value returns the compared value, a []interface{} for array operations
// and nil for IS NULL / IS NOT NULL.
func (f *ColumnFilter) Value() interface{} {
	if s, ok := f.value.([]interface{}); ok {
		return toSlice(s)
	}
	return f.value
}

// Values returns the value as a list. Scalars yield a single element list,
// unary operations an empty one.
func (f *ColumnFilter) Values() []interface{} {
	switch {
	case f.operation.IsUnary():
		return []interface{}{}
	case f.operation.IsArray():
		return toSlice(f.value)
	default:
		return []interface{}{f.value}
	}
}

// Validate implements Filter
func (f *ColumnFilter) Validate() error {
	if f == nil || f.column == "" {
		return fmt.Errorf("%w: column filter requires a column name", ErrInvalidFilter)
	}
	return f.operation.Validate(f.value)
}
