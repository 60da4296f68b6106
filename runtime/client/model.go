package client

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
	"github.com/phormium-go/phormium/query/sqlgen"
	"github.com/phormium-go/phormium/runtime/types"
)

// Insert inserts a row into the table of model and returns the inserted
// values. A single column primary key left unset is generated by the
// database and filled in on the returned row.
func (c *Client) Insert(ctx context.Context, model interface{}, values map[string]interface{}) (query.Row, error) {
	meta, err := c.schema.Meta(model)
	if err != nil {
		return nil, err
	}
	return c.insert(ctx, meta, values)
}

func (c *Client) insert(ctx context.Context, meta *types.Meta, values map[string]interface{}) (query.Row, error) {
	row := maps.Clone(values)
	if row == nil {
		row = query.Row{}
	}

	_, err := c.extensions.ExecuteMutation(ctx, meta.Table, OpInsert, values, func() (interface{}, error) {
		conn, gen, err := c.connection(ctx, meta)
		if err != nil {
			return nil, err
		}

		seg, err := gen.Insert(meta, values)
		if err != nil {
			return nil, err
		}

		if !sqlgen.NeedsGeneratedPK(meta, values) {
			return conn.PreparedExecute(ctx, seg)
		}

		pk := meta.PK[0]
		if gen.Returning() {
			rows, err := conn.PreparedQuery(ctx, seg)
			if err != nil {
				return nil, err
			}
			if len(rows) != 1 {
				return nil, fmt.Errorf("%w: insert returned %d rows", query.ErrInvalidQuery, len(rows))
			}
			row[pk] = rows[0][pk]
			return row, nil
		}

		if _, err := conn.PreparedExecute(ctx, seg); err != nil {
			return nil, err
		}
		rows, err := conn.Query(ctx, gen.LastInsertID())
		if err != nil {
			return nil, err
		}
		id, err := scalar(rows)
		if err != nil {
			return nil, err
		}
		if row[pk], err = cast.ToInt64E(id); err != nil {
			return nil, fmt.Errorf("%w: invalid generated primary key %v", query.ErrInvalidQuery, id)
		}
		return row, nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func scalar(rows []query.Row) (interface{}, error) {
	if len(rows) != 1 || len(rows[0]) != 1 {
		return nil, fmt.Errorf("%w: expected a single value", query.ErrInvalidQuery)
	}
	for _, v := range rows[0] {
		return v, nil
	}
	return nil, nil
}

// pkQuerySet returns a QuerySet filtered on the primary key of model
func (c *Client) pkQuerySet(model interface{}, pk []interface{}) (*QuerySet, error) {
	meta, err := c.schema.Meta(model)
	if err != nil {
		return nil, err
	}
	return c.metaPKQuerySet(meta, pk)
}

func (c *Client) metaPKQuerySet(meta *types.Meta, pk []interface{}) (*QuerySet, error) {
	if !meta.HasPK() {
		return nil, fmt.Errorf("%w: primary key not defined for model [%s]", types.ErrInvalidModel, meta.Table)
	}
	if len(pk) != len(meta.PK) {
		return nil, fmt.Errorf("%w: model [%s] has %d primary key columns, %d arguments given",
			query.ErrInvalidQuery, meta.Table, len(meta.PK), len(pk))
	}

	var err error
	qs := newQuerySet(c, meta)
	for i, column := range meta.PK {
		qs, err = qs.Filter(column, string(filter.OpEquals), pk[i])
		if err != nil {
			return nil, err
		}
	}
	return qs, nil
}

// Get returns the row of model with the given primary key, failing with
// ErrNotFound when it does not exist.
func (c *Client) Get(ctx context.Context, model interface{}, pk ...interface{}) (query.Row, error) {
	row, err := c.Find(ctx, model, pk...)
	if err != nil {
		return nil, err
	}
	if row == nil {
		meta, _ := c.schema.Meta(model)
		return nil, fmt.Errorf("%w: [%s] record with primary key [%s] does not exist", ErrNotFound, meta.Table, joinPK(pk))
	}
	return row, nil
}

// Find returns the row of model with the given primary key, nil when it
// does not exist.
func (c *Client) Find(ctx context.Context, model interface{}, pk ...interface{}) (query.Row, error) {
	qs, err := c.pkQuerySet(model, pk)
	if err != nil {
		return nil, err
	}
	return qs.Single(ctx, true)
}

// Exists reports whether a row of model with the given primary key exists
func (c *Client) Exists(ctx context.Context, model interface{}, pk ...interface{}) (bool, error) {
	qs, err := c.pkQuerySet(model, pk)
	if err != nil {
		return false, err
	}
	return qs.Exists(ctx)
}

// UpdateByPK updates the row identified by the primary key columns in
// values with the remaining values.
func (c *Client) UpdateByPK(ctx context.Context, model interface{}, values map[string]interface{}) (int64, error) {
	meta, err := c.schema.Meta(model)
	if err != nil {
		return 0, err
	}
	return c.updateByPK(ctx, meta, values)
}

func (c *Client) updateByPK(ctx context.Context, meta *types.Meta, values map[string]interface{}) (int64, error) {
	pk, err := pkValues(meta, values)
	if err != nil {
		return 0, err
	}

	qs, err := c.metaPKQuerySet(meta, pk)
	if err != nil {
		return 0, err
	}

	update := make(map[string]interface{}, len(values))
	for column, value := range values {
		if !meta.IsPK(column) {
			update[column] = value
		}
	}
	return qs.Update(ctx, update)
}

// DeleteByPK deletes the row with the given primary key
func (c *Client) DeleteByPK(ctx context.Context, model interface{}, pk ...interface{}) (int64, error) {
	qs, err := c.pkQuerySet(model, pk)
	if err != nil {
		return 0, err
	}
	return qs.Delete(ctx)
}

// Save writes a struct model. When all its primary key fields are set and
// the row exists it is updated, otherwise it is inserted and a generated
// primary key is copied back onto the struct, which must be a pointer.
func (c *Client) Save(ctx context.Context, model interface{}) error {
	meta, err := c.schema.Meta(model)
	if err != nil {
		return err
	}
	values, err := ValuesOf(model)
	if err != nil {
		return err
	}

	if pk, ok := structPK(meta, values); ok {
		qs, err := c.metaPKQuerySet(meta, pk)
		if err != nil {
			return err
		}
		exists, err := qs.Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			_, err = c.updateByPK(ctx, meta, values)
			return err
		}
	}

	// An unset single column key is left to the database
	if len(meta.PK) == 1 && isZero(values[meta.PK[0]]) {
		delete(values, meta.PK[0])
	}

	row, err := c.insert(ctx, meta, values)
	if err != nil {
		return err
	}
	return ScanRow(row, model)
}

// structPK returns the primary key of a struct model, reporting false when
// the model has no key or one of its fields holds a zero value.
func structPK(meta *types.Meta, values map[string]interface{}) ([]interface{}, bool) {
	if !meta.HasPK() {
		return nil, false
	}
	pk := make([]interface{}, len(meta.PK))
	for i, column := range meta.PK {
		if isZero(values[column]) {
			return nil, false
		}
		pk[i] = values[column]
	}
	return pk, true
}

func isZero(value interface{}) bool {
	if value == nil {
		return true
	}
	return reflect.ValueOf(value).IsZero()
}

// pkValues extracts the primary key of meta from values
func pkValues(meta *types.Meta, values map[string]interface{}) ([]interface{}, error) {
	if !meta.HasPK() {
		return nil, fmt.Errorf("%w: primary key not defined for model [%s]", types.ErrInvalidModel, meta.Table)
	}

	pk := make([]interface{}, len(meta.PK))
	for i, column := range meta.PK {
		value, ok := values[column]
		if !ok || value == nil {
			return nil, fmt.Errorf("%w: cannot update, primary key column [%s] is not set", query.ErrInvalidQuery, column)
		}
		pk[i] = value
	}
	return pk, nil
}

func joinPK(pk []interface{}) string {
	parts := make([]string, len(pk))
	for i, v := range pk {
		parts[i] = cast.ToString(v)
	}
	return strings.Join(parts, ", ")
}
