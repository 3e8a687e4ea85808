/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package aztable

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/entity"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/sas"
	"github.com/suparena/tablestore/storagemodels"
)

type table struct {
	name   string
	client *aztables.Client
}

func newTable(name string, client *aztables.Client) *table {
	return &table{name: name, client: client}
}

func (t *table) Name() string { return t.name }

func (t *table) Upsert(ctx context.Context, e *entity.Entity, mode datastore.UpdateMode) (*entity.Entity, error) {
	payload, err := entity.MarshalWire(e)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: sdkMode(mode)})
	if err != nil {
		return nil, mapError("upsert_"+mode.String(), t.resource(e.Key()), err)
	}
	return stored(e, resp.ETag), nil
}

func (t *table) Insert(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	payload, err := entity.MarshalWire(e)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.AddEntity(ctx, payload, nil)
	if err != nil {
		return nil, mapError("insert", t.resource(e.Key()), err)
	}
	return stored(e, resp.ETag), nil
}

func (t *table) Update(ctx context.Context, e *entity.Entity, mode datastore.UpdateMode, etag string) (*entity.Entity, error) {
	payload, err := entity.MarshalWire(e)
	if err != nil {
		return nil, err
	}
	if etag == "" {
		etag = datastore.AnyETag
	}
	match := azcore.ETag(etag)
	resp, err := t.client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &match,
		UpdateMode: sdkMode(mode),
	})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, tserrors.NewConditionFailedError("update", "entity "+e.Key().String()+" does not exist")
		}
		return nil, mapError("update_"+mode.String(), t.resource(e.Key()), err)
	}
	return stored(e, resp.ETag), nil
}

func (t *table) Get(ctx context.Context, key entity.Key) (*entity.Entity, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	resp, err := t.client.GetEntity(ctx, key.PartitionKey, key.RowKey, nil)
	if err != nil {
		return nil, mapError("get", t.resource(key), err)
	}
	e, err := entity.UnmarshalWire(resp.Value)
	if err != nil {
		return nil, err
	}
	if resp.ETag != "" {
		e.ETag = string(resp.ETag)
	}
	return e, nil
}

func (t *table) Delete(ctx context.Context, key entity.Key, etag string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if etag == "" {
		etag = datastore.AnyETag
	}
	match := azcore.ETag(etag)
	_, err := t.client.DeleteEntity(ctx, key.PartitionKey, key.RowKey, &aztables.DeleteEntityOptions{IfMatch: &match})
	if err != nil {
		// a missing entity fails the delete's existence condition
		if isStatus(err, http.StatusNotFound) && !isTableMissing(err) {
			return tserrors.NewConditionFailedError("delete", "entity "+key.String()+" does not exist")
		}
		return mapError("delete", t.resource(key), err)
	}
	return nil
}

func (t *table) Query(ctx context.Context, params *storagemodels.QueryParams) ([]*entity.Entity, error) {
	if params == nil {
		params = &storagemodels.QueryParams{}
	}
	var (
		out  []*entity.Entity
		next continuation
	)
	for {
		page, err := t.fetchPage(ctx, params, params.Top, next)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Entities {
			e, err := entity.UnmarshalWire(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
			if params.Limit > 0 && len(out) >= params.Limit {
				return out, nil
			}
		}
		next = continuation{partitionKey: page.NextPartitionKey, rowKey: page.NextRowKey}
		if next.done() {
			return out, nil
		}
	}
}

func (t *table) GetAccessPolicies(ctx context.Context) ([]sas.Policy, error) {
	resp, err := t.client.GetAccessPolicy(ctx, nil)
	if err != nil {
		return nil, mapError("get_access_policy", t.name, err)
	}
	policies := make([]sas.Policy, 0, len(resp.SignedIdentifiers))
	for _, id := range resp.SignedIdentifiers {
		if id == nil || id.ID == nil {
			continue
		}
		p := sas.Policy{Name: *id.ID}
		if ap := id.AccessPolicy; ap != nil {
			if ap.Start != nil {
				p.Start = ap.Start.UTC()
			}
			if ap.Expiry != nil {
				p.Expiry = ap.Expiry.UTC()
			}
			if ap.Permission != nil {
				perms, err := sas.ParsePermissions(*ap.Permission)
				if err != nil {
					return nil, err
				}
				p.Permissions = perms
			}
		}
		policies = append(policies, p)
	}
	return policies, nil
}

func (t *table) SetAccessPolicies(ctx context.Context, policies []sas.Policy) error {
	acl := make([]*aztables.SignedIdentifier, 0, len(policies))
	for _, p := range policies {
		ap := &aztables.AccessPolicy{
			Permission: to.Ptr(p.Permissions.String()),
		}
		if !p.Start.IsZero() {
			ap.Start = to.Ptr(p.Start.UTC().Truncate(time.Second))
		}
		if !p.Expiry.IsZero() {
			ap.Expiry = to.Ptr(p.Expiry.UTC().Truncate(time.Second))
		}
		acl = append(acl, &aztables.SignedIdentifier{ID: to.Ptr(p.Name), AccessPolicy: ap})
	}
	if _, err := t.client.SetAccessPolicy(ctx, &aztables.SetAccessPolicyOptions{TableACL: acl}); err != nil {
		return mapError("set_access_policy", t.name, err)
	}
	return nil
}

func (t *table) resource(key entity.Key) string {
	return t.name + "/" + key.String()
}

func sdkMode(mode datastore.UpdateMode) aztables.UpdateMode {
	if mode == datastore.Replace {
		return aztables.UpdateModeReplace
	}
	return aztables.UpdateModeMerge
}

func stored(e *entity.Entity, etag azcore.ETag) *entity.Entity {
	out := e.Clone()
	out.ETag = string(etag)
	return out
}

func isTableMissing(err error) bool {
	if !isStatus(err, http.StatusNotFound) {
		return false
	}
	return strings.EqualFold(responseCode(err), string(aztables.TableNotFound))
}
