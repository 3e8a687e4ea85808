/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/sas"
	"github.com/suparena/tablestore/storagemodels"
)

// UpdateMode selects how a write combines with an existing entity.
type UpdateMode int

const (
	// Merge keeps existing properties the write does not mention.
	Merge UpdateMode = iota
	// Replace discards every property the write does not mention.
	Replace
)

func (m UpdateMode) String() string {
	if m == Replace {
		return "replace"
	}
	return "merge"
}

// AnyETag matches whatever version of the entity is stored.
const AnyETag = "*"

// Service is a table service endpoint reached with account credentials.
type Service interface {
	// EnsureTable creates the table when missing and reports whether it did.
	EnsureTable(ctx context.Context, name string) (bool, error)

	DeleteTable(ctx context.Context, name string) error

	// Table returns a handle without contacting the service.
	Table(name string) (Table, error)

	// SASTable returns a handle authorized only by token.
	SASTable(token sas.Token) (Table, error)
}

// Table is the set of operations on one table. Writes return the entity that was
// sent with the ETag the service assigned; read it back for the merged state.
type Table interface {
	Name() string

	Upsert(ctx context.Context, e *entity.Entity, mode UpdateMode) (*entity.Entity, error)

	// Insert fails with AlreadyExists when the key is taken.
	Insert(ctx context.Context, e *entity.Entity) (*entity.Entity, error)

	// Update requires the entity to exist and to match etag ("*" for any version).
	Update(ctx context.Context, e *entity.Entity, mode UpdateMode, etag string) (*entity.Entity, error)

	Get(ctx context.Context, key entity.Key) (*entity.Entity, error)

	// Delete is strict: a missing entity or stale etag is a PreconditionFailed error.
	Delete(ctx context.Context, key entity.Key, etag string) error

	Query(ctx context.Context, params *storagemodels.QueryParams) ([]*entity.Entity, error)

	Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*entity.Entity]

	GetAccessPolicies(ctx context.Context) ([]sas.Policy, error)

	// SetAccessPolicies replaces the complete set of stored access policies.
	SetAccessPolicies(ctx context.Context, policies []sas.Policy) error
}
