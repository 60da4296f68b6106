package types

import (
	"fmt"
	"reflect"
	"strings"
)

// Tabler is implemented by models which name their table
type Tabler interface {
	TableName() string
}

// DatabaseNamer is implemented by models which name their database connection
type DatabaseNamer interface {
	DatabaseName() string
}

// MetaOf builds a schema descriptor from a struct (or pointer to struct).
//
// Exported fields become columns, named by their `db` tag or the lower cased
// field name. A tag of "-" skips the field and a ",pk" option marks a primary
// key column:
//
//	type Trade struct {
//		TradeDate string  `db:"tradedate,pk"`
//		TradeNo   int     `db:"tradeno,pk"`
//		Price     float64 `db:"price"`
//	}
//
// The table defaults to the lower cased type name unless the model implements
// Tabler. The database must be supplied through DatabaseNamer.
func MetaOf(model interface{}) (*Meta, error) {
	typ, err := structType(model)
	if err != nil {
		return nil, err
	}

	table := strings.ToLower(typ.Name())
	if t, ok := model.(Tabler); ok {
		table = t.TableName()
	}

	database := ""
	if d, ok := model.(DatabaseNamer); ok {
		database = d.DatabaseName()
	}
	if database == "" {
		return nil, fmt.Errorf("%w: model [%s] does not define a database", ErrInvalidModel, typ.Name())
	}

	var columns, pk []string
	for _, f := range Fields(typ) {
		columns = append(columns, f.Column)
		if f.PK {
			pk = append(pk, f.Column)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: model [%s] has no defined columns", ErrInvalidModel, typ.Name())
	}

	return NewMeta(table, database, columns, pk...)
}

// Field maps a struct field onto a column
type Field struct {
	Column string
	Index  []int
	PK     bool
}

// Fields returns the column mapped fields of a struct type in declaration order
func Fields(typ reflect.Type) []Field {
	var fields []Field
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get("db")
		if tag == "-" {
			continue
		}

		parts := strings.Split(tag, ",")
		name := parts[0]
		if name == "" {
			name = strings.ToLower(sf.Name)
		}

		field := Field{Column: name, Index: sf.Index}
		for _, opt := range parts[1:] {
			if strings.TrimSpace(opt) == "pk" {
				field.PK = true
			}
		}
		fields = append(fields, field)
	}
	return fields
}

func structType(model interface{}) (reflect.Type, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model given", ErrInvalidModel)
	}
	typ := reflect.TypeOf(model)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: expected a struct, %s given", ErrInvalidModel, typ)
	}
	return typ, nil
}
