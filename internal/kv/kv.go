// Package kv is the durable key-value collaborator the collection is
// persisted through. Backends store opaque bytes; Value adds a typed JSON
// view with a default for missing keys.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Value is a typed handle on a single key.
type Value[T any] struct {
	store Store
	key   string
	def   T
}

func NewValue[T any](store Store, key string, def T) *Value[T] {
	return &Value[T]{store: store, key: key, def: def}
}

func (v *Value[T]) Key() string {
	return v.key
}

// Get decodes the stored value, or returns the default if the key is absent.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	data, err := v.store.Get(ctx, v.key)
	if errors.Is(err, ErrNotFound) {
		return v.def, nil
	}
	if err != nil {
		return v.def, fmt.Errorf("get %s: %w", v.key, err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v.def, fmt.Errorf("decode %s: %w", v.key, err)
	}
	return out, nil
}

func (v *Value[T]) Set(ctx context.Context, val T) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.key, err)
	}
	if err := v.store.Set(ctx, v.key, data); err != nil {
		return fmt.Errorf("set %s: %w", v.key, err)
	}
	return nil
}
