package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/runtime/types"
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
)

// ScanRows maps rows onto a slice of structs
func ScanRows[T any](rows []query.Row) ([]T, error) {
	results := make([]T, 0, len(rows))
	for _, row := range rows {
		var result T
		if err := ScanRow(row, &result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ScanRow copies the columns of row onto the fields of the struct dest
// points to. Fields are matched by their db tag, or case-insensitively by
// name. Columns without a matching field are ignored.
func ScanRow(row query.Row, dest interface{}) error {
	val := reflect.ValueOf(dest)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: expected a pointer to a struct, %T given", types.ErrInvalidModel, dest)
	}
	val = val.Elem()

	for column, value := range row {
		field, ok := findField(val.Type(), column)
		if !ok {
			continue
		}
		if err := assign(val.FieldByIndex(field.Index), value); err != nil {
			return fmt.Errorf("cannot assign column [%s] to field %s.%s: %w",
				column, val.Type().Name(), val.Type().FieldByIndex(field.Index).Name, err)
		}
	}
	return nil
}

// ValuesOf returns the column values of a struct model keyed by column
// name. Nil pointers become nil values.
func ValuesOf(model interface{}) (map[string]interface{}, error) {
	val := reflect.ValueOf(model)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("%w: nil model given", types.ErrInvalidModel)
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: expected a struct, %T given", types.ErrInvalidModel, model)
	}

	values := make(map[string]interface{})
	for _, field := range types.Fields(val.Type()) {
		fv := val.FieldByIndex(field.Index)
		if fv.Kind() == reflect.Ptr && fv.IsNil() {
			values[field.Column] = nil
			continue
		}
		values[field.Column] = fv.Interface()
	}
	return values, nil
}

// findField finds a struct field by column name (db tag or field name)
func findField(typ reflect.Type, column string) (types.Field, bool) {
	fields := types.Fields(typ)
	for _, f := range fields {
		if f.Column == column {
			return f, true
		}
	}
	for _, f := range fields {
		if strings.EqualFold(f.Column, column) {
			return f, true
		}
	}
	return types.Field{}, false
}

func assign(field reflect.Value, value interface{}) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	if field.CanAddr() && field.Addr().Type().Implements(scannerType) {
		return field.Addr().Interface().(sql.Scanner).Scan(value)
	}

	if field.Kind() == reflect.Ptr {
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(field.Type()) {
		field.Set(v)
		return nil
	}

	switch {
	case field.Type() == timeType:
		t, err := cast.ToTimeE(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
		return nil
	case field.Type() == bytesType:
		field.SetBytes([]byte(cast.ToString(value)))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(value)
		if err != nil {
			return err
		}
		field.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := cast.ToInt64E(value)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := cast.ToUint64E(value)
		if err != nil {
			return err
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		if v.Type().ConvertibleTo(field.Type()) {
			field.Set(v.Convert(field.Type()))
			return nil
		}
		return fmt.Errorf("unsupported conversion from %T to %s", value, field.Type())
	}
	return nil
}
