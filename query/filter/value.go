package filter

import (
	"database/sql/driver"
	"reflect"
	"time"
)

// valueShape is the shape of a filter value as seen by the operation validators
type valueShape int

const (
	shapeNone valueShape = iota
	shapeScalar
	shapeArray
	shapeOther
)

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

func shapeOf(value interface{}) valueShape {
	if value == nil {
		return shapeNone
	}
	if isArray(value) {
		return shapeArray
	}

	t := reflect.TypeOf(value)
	if t == timeType || t.Implements(valuerType) {
		return shapeScalar
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return shapeScalar
	case reflect.Slice:
		// []byte is a scalar blob
		if t.Elem().Kind() == reflect.Uint8 {
			return shapeScalar
		}
	}
	return shapeOther
}

// isArray reports whether value is a slice or array other than []byte
func isArray(value interface{}) bool {
	if value == nil {
		return false
	}
	t := reflect.TypeOf(value)
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

// toSlice flattens a slice or array of any element type into []interface{}
func toSlice(value interface{}) []interface{} {
	if s, ok := value.([]interface{}); ok {
		copied := make([]interface{}, len(s))
		copy(copied, s)
		return copied
	}

	v := reflect.ValueOf(value)
	result := make([]interface{}, v.Len())
	for i := range result {
		result[i] = v.Index(i).Interface()
	}
	return result
}
