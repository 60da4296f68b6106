package query

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
)

var digits = regexp.MustCompile(`^[0-9]+$`)

// LimitOffset restricts the number of returned rows. An offset may only be
// given together with a limit.
type LimitOffset struct {
	limit     int
	offset    int
	hasLimit  bool
	hasOffset bool
}

// NewLimitOffset creates a LimitOffset. Both values may be nil, any integer
// type or a string consisting only of digits. Negative and fractional values
// are rejected.
func NewLimitOffset(limit, offset interface{}) (LimitOffset, error) {
	var lo LimitOffset
	var err error

	lo.limit, lo.hasLimit, err = toNonNegative(limit)
	if err != nil {
		return LimitOffset{}, fmt.Errorf("%w: limit must be a non-negative integer or nil", ErrInvalidQuery)
	}

	lo.offset, lo.hasOffset, err = toNonNegative(offset)
	if err != nil {
		return LimitOffset{}, fmt.Errorf("%w: offset must be a non-negative integer or nil", ErrInvalidQuery)
	}

	if lo.hasOffset && !lo.hasLimit {
		return LimitOffset{}, fmt.Errorf("%w: offset cannot be given without a limit", ErrInvalidQuery)
	}

	return lo, nil
}

// Limit returns the limit and whether it is set
func (lo LimitOffset) Limit() (int, bool) {
	return lo.limit, lo.hasLimit
}

// Offset returns the offset and whether it is set
func (lo LimitOffset) Offset() (int, bool) {
	return lo.offset, lo.hasOffset
}

func toNonNegative(value interface{}) (int, bool, error) {
	if value == nil {
		return 0, false, nil
	}

	if s, ok := value.(string); ok {
		if !digits.MatchString(s) {
			return 0, false, strconv.ErrSyntax
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Int() < 0 || v.Int() > math.MaxInt {
			return 0, false, strconv.ErrRange
		}
		return int(v.Int()), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.Uint() > math.MaxInt {
			return 0, false, strconv.ErrRange
		}
		return int(v.Uint()), true, nil
	case reflect.Ptr:
		if v.IsNil() {
			return 0, false, nil
		}
		return toNonNegative(v.Elem().Interface())
	default:
		return 0, false, strconv.ErrSyntax
	}
}
