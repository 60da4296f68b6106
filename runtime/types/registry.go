package types

import (
	"fmt"
	"reflect"
	"sync"
)

// SchemaProvider resolves the schema descriptor of a model identifier
type SchemaProvider interface {
	Meta(model interface{}) (*Meta, error)
}

// Registry is a SchemaProvider holding descriptors registered by name and
// caching descriptors derived from struct types. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Meta
	byType map[reflect.Type]*Meta
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Meta),
		byType: make(map[reflect.Type]*Meta),
	}
}

// Register stores meta under name, replacing any previous descriptor
func (r *Registry) Register(name string, meta *Meta) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = meta
	return nil
}

// Meta resolves model, which may be a registered name, a *Meta or a struct
// value or pointer (see MetaOf).
func (r *Registry) Meta(model interface{}) (*Meta, error) {
	switch m := model.(type) {
	case *Meta:
		return m, nil
	case string:
		r.mu.RLock()
		meta, ok := r.byName[m]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: model [%s] is not registered", ErrInvalidModel, m)
		}
		return meta, nil
	}

	typ, err := structType(model)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	meta, ok := r.byType[typ]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	meta, err = MetaOf(model)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.byType[typ] = meta
	r.mu.Unlock()
	return meta, nil
}
