/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"pkt.systems/pslog"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/entity"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/policy"
	"github.com/suparena/tablestore/sas"
	"github.com/suparena/tablestore/storagemodels"
)

// Table is a handle on one table. It is authorized either by the account key of the
// Client that opened it or, when Scoped, only by a SAS token. Handles hold no mutable
// state and are safe for concurrent use.
type Table struct {
	name    string
	backend datastore.Table
	logger  pslog.Logger
	created bool

	signer *signer
	token  *sas.Token
}

type signer struct {
	cred     *aztables.SharedKeyCredential
	tableURL string
	validity time.Duration
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Created reports whether EnsureTable created the table, as opposed to finding it.
func (t *Table) Created() bool { return t.created }

// Scoped reports whether the handle is authorized only by a SAS token.
func (t *Table) Scoped() bool { return t.token != nil }

// SASToken returns the token of a scoped handle.
func (t *Table) SASToken() (sas.Token, bool) {
	if t.token == nil {
		return sas.Token{}, false
	}
	return *t.token, true
}

// UpsertMerge inserts the record or merges its properties into the stored entity.
// Properties the record does not carry are kept.
func (t *Table) UpsertMerge(ctx context.Context, rec entity.Record) (*entity.Entity, error) {
	e, err := recordEntity(rec)
	if err != nil {
		return nil, err
	}
	return t.backend.Upsert(ctx, e, datastore.Merge)
}

// UpsertReplace inserts the record or replaces the stored entity with it.
func (t *Table) UpsertReplace(ctx context.Context, rec entity.Record) (*entity.Entity, error) {
	e, err := recordEntity(rec)
	if err != nil {
		return nil, err
	}
	return t.backend.Upsert(ctx, e, datastore.Replace)
}

// Insert adds the record and fails with AlreadyExists when the key is taken.
func (t *Table) Insert(ctx context.Context, rec entity.Record) (*entity.Entity, error) {
	e, err := recordEntity(rec)
	if err != nil {
		return nil, err
	}
	return t.backend.Insert(ctx, e)
}

// Update writes an existing entity. An *entity.Entity carrying an ETag is only
// written if the stored version still matches it.
func (t *Table) Update(ctx context.Context, rec entity.Record, mode datastore.UpdateMode) (*entity.Entity, error) {
	e, err := recordEntity(rec)
	if err != nil {
		return nil, err
	}
	return t.backend.Update(ctx, e, mode, etagOf(rec))
}

// GetByKey reads one entity. A missing entity is a NotFound error.
func (t *Table) GetByKey(ctx context.Context, partitionKey, rowKey string) (*entity.Entity, error) {
	key := entity.Key{PartitionKey: partitionKey, RowKey: rowKey}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return t.backend.Get(ctx, key)
}

// Delete removes the entity identified by rec. Deletes are strict: a missing entity,
// or an *entity.Entity whose ETag no longer matches, fails with PreconditionFailed.
func (t *Table) Delete(ctx context.Context, rec entity.Keyed) error {
	if missingRecord(rec) {
		return tserrors.NewValidationError("record", "is required")
	}
	key := rec.Key()
	if err := key.Validate(); err != nil {
		return err
	}
	return t.backend.Delete(ctx, key, etagOf(rec))
}

// Query lists the entities matching params. A nil params lists the whole table.
func (t *Table) Query(ctx context.Context, params *storagemodels.QueryParams) ([]*entity.Entity, error) {
	if params == nil {
		params = &storagemodels.QueryParams{}
	}
	return t.backend.Query(ctx, params)
}

// Stream pages through the entities matching params on a channel.
func (t *Table) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*entity.Entity] {
	if params == nil {
		params = &storagemodels.QueryParams{}
	}
	return t.backend.Stream(ctx, params, opts...)
}

// Policies returns a manager for the table's stored access policies. SAS tokens never
// grant access to the ACL, so on a scoped handle every call is AuthorizationDenied.
func (t *Table) Policies() *policy.Manager {
	return policy.NewManager(t.backend, policy.WithLogger(t.logger), policy.WithTableName(t.name))
}

// GenerateSAS signs a SAS for the table. Scoped handles hold no key and cannot sign.
func (t *Table) GenerateSAS(req sas.Request) (sas.Token, error) {
	if t.signer == nil {
		return sas.Token{}, tserrors.NewValidationError("table", "a SAS-scoped table cannot generate SAS tokens")
	}
	tok, err := sas.Generate(sas.Target{TableURL: t.signer.tableURL, TableName: t.name}, t.signer.cred, req)
	if err != nil {
		return sas.Token{}, err
	}
	mode := "ad-hoc"
	if tok.StoredPolicyBacked() {
		mode = "stored-policy"
	}
	t.logger.Debug("generated SAS", "mode", mode, "uri", sas.Redact(tok.URI))
	return tok, nil
}

// AdHocSAS signs a SAS granting perms from now for the client's default validity.
func (t *Table) AdHocSAS(perms sas.Permissions) (sas.Token, error) {
	validity := DefaultSASValidity
	if t.signer != nil {
		validity = t.signer.validity
	}
	return t.GenerateSAS(sas.Request{
		AdHoc: &sas.Policy{
			Expiry:      time.Now().UTC().Add(validity),
			Permissions: perms,
		},
	})
}

// StoredPolicySAS signs a SAS whose constraints come from the named stored policy.
func (t *Table) StoredPolicySAS(name string) (sas.Token, error) {
	return t.GenerateSAS(sas.Request{StoredPolicy: name})
}

// missingRecord catches nil interfaces and typed nil entities.
func missingRecord(rec entity.Keyed) bool {
	if rec == nil {
		return true
	}
	e, ok := rec.(*entity.Entity)
	return ok && e == nil
}

func recordEntity(rec entity.Record) (*entity.Entity, error) {
	if missingRecord(rec) {
		return nil, tserrors.NewValidationError("record", "is required")
	}
	return entity.FromRecord(rec), nil
}

func etagOf(rec any) string {
	if e, ok := rec.(*entity.Entity); ok && e != nil && e.ETag != "" {
		return e.ETag
	}
	return datastore.AnyETag
}
