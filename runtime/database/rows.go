package database

import (
	"database/sql"
	"strings"

	"github.com/phormium-go/phormium/query"
)

// binaryTypes are the column types whose []byte values are kept as bytes.
// Everything else the driver hands back as []byte is text.
var binaryTypes = []string{"BLOB", "BYTEA", "BINARY", "VARBINARY", "IMAGE"}

// eachRow scans every remaining row into a query.Row and passes it to fn.
// It returns the number of rows seen.
func eachRow(rows *sql.Rows, fn func(query.Row) error) (int, error) {
	columns, err := rows.ColumnTypes()
	if err != nil {
		return 0, err
	}

	binary := make([]bool, len(columns))
	for i, col := range columns {
		binary[i] = isBinary(col.DatabaseTypeName())
	}

	count := 0
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return count, err
		}

		row := make(query.Row, len(columns))
		for i, col := range columns {
			value := values[i]
			if b, ok := value.([]byte); ok {
				if binary[i] {
					value = append([]byte(nil), b...)
				} else {
					value = string(b)
				}
			}
			row[col.Name()] = value
		}

		count++
		if err := fn(row); err != nil {
			return count, err
		}
	}

	return count, rows.Err()
}

func isBinary(typeName string) bool {
	typeName = strings.ToUpper(typeName)
	for _, t := range binaryTypes {
		if strings.Contains(typeName, t) {
			return true
		}
	}
	return false
}
