/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// TypedTable provides type-safe entity operations for a struct type T.
// Keys come from the index map registered for T, or from PartitionKey/RowKey fields.
type TypedTable[T any] struct {
	table      *Table
	idxMap     map[string]string
	entityType string
}

// TypedOption configures a TypedTable.
type TypedOption func(*typedOptions)

type typedOptions struct {
	entityType string
}

// WithEntityType stamps every written entity with the registry.EntityTypeProperty so
// mixed-type tables can be decoded with registry.Decode.
func WithEntityType(name string) TypedOption {
	return func(o *typedOptions) {
		o.entityType = name
	}
}

// Typed returns a typed view of t for T.
func Typed[T any](t *Table, opts ...TypedOption) *TypedTable[T] {
	var o typedOptions
	for _, opt := range opts {
		opt(&o)
	}
	idxMap, _ := registry.GetIndexMap[T]()
	return &TypedTable[T]{table: t, idxMap: idxMap, entityType: o.entityType}
}

// Table returns the untyped handle.
func (tt *TypedTable[T]) Table() *Table { return tt.table }

// validator is implemented by generated models.
type validator interface {
	Validate(formats strfmt.Registry) error
}

// ToEntity converts item into an entity, expanding the key templates of T.
// Items implementing Validate(strfmt.Registry) are validated first.
func (tt *TypedTable[T]) ToEntity(item T) (*entity.Entity, error) {
	if v, ok := any(&item).(validator); ok {
		if err := v.Validate(strfmt.Default); err != nil {
			return nil, err
		}
	}
	e, err := entity.FromStruct(item)
	if err != nil {
		return nil, err
	}
	if tt.idxMap != nil {
		key, err := registry.ExpandKey(tt.idxMap, e.Properties())
		if err != nil {
			return nil, fmt.Errorf("failed to derive key for %T: %w", item, err)
		}
		e = e.WithKey(key.PartitionKey, key.RowKey)
	}
	if tt.entityType != "" {
		e.With(registry.EntityTypeProperty, tt.entityType)
	}
	if err := e.Key().Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// FromEntity converts a stored entity into T.
func (tt *TypedTable[T]) FromEntity(e *entity.Entity) (*T, error) {
	var out T
	if err := entity.ToStruct(e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertMerge writes item, keeping stored properties item does not carry.
func (tt *TypedTable[T]) UpsertMerge(ctx context.Context, item T) (*entity.Entity, error) {
	e, err := tt.ToEntity(item)
	if err != nil {
		return nil, err
	}
	return tt.table.UpsertMerge(ctx, e)
}

// UpsertReplace writes item, replacing the stored entity.
func (tt *TypedTable[T]) UpsertReplace(ctx context.Context, item T) (*entity.Entity, error) {
	e, err := tt.ToEntity(item)
	if err != nil {
		return nil, err
	}
	return tt.table.UpsertReplace(ctx, e)
}

// Get reads the entity at the given key as T.
func (tt *TypedTable[T]) Get(ctx context.Context, partitionKey, rowKey string) (*T, error) {
	e, err := tt.table.GetByKey(ctx, partitionKey, rowKey)
	if err != nil {
		return nil, err
	}
	return tt.FromEntity(e)
}

// Delete removes the entity derived from item. Missing entities fail with PreconditionFailed.
func (tt *TypedTable[T]) Delete(ctx context.Context, item T) error {
	e, err := tt.ToEntity(item)
	if err != nil {
		return err
	}
	return tt.table.Delete(ctx, e)
}

// Query lists matching entities as T.
func (tt *TypedTable[T]) Query(ctx context.Context, params *storagemodels.QueryParams) ([]T, error) {
	rows, err := tt.table.Query(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		item, err := tt.FromEntity(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, nil
}

// Stream pages through matching entities as T. Conversion failures are delivered as
// item errors and do not stop the stream.
func (tt *TypedTable[T]) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.ApplyStreamOptions(opts...)
	in := tt.table.Stream(ctx, params, opts...)
	out := make(chan storagemodels.StreamResult[T], options.BufferSize)

	go func() {
		defer close(out)
		for res := range in {
			converted := storagemodels.StreamResult[T]{Raw: res.Raw, Error: res.Error, Meta: res.Meta}
			if res.Error == nil && res.Item != nil {
				item, err := tt.FromEntity(res.Item)
				if err != nil {
					converted.Error = err
				} else {
					converted.Item = *item
				}
			}
			select {
			case out <- converted:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
