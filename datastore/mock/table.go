/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
	"strings"
	"time"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/sas"
	"github.com/suparena/tablestore/storagemodels"
)

// Table is a handle on a mock table, authorized by the account or by a SAS token.
type Table struct {
	svc   *Service
	name  string
	token *sas.Token
}

func (t *Table) Name() string { return t.name }

// begin locks the service and runs the checks shared by every operation.
// On success the caller owns s.mu and must unlock it.
func (t *Table) begin(ctx context.Context, op string, need sas.Permissions) (*tableState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := t.svc
	s.mu.Lock()
	if err := s.failures[op]; err != nil {
		s.mu.Unlock()
		return nil, err
	}
	st := s.tables[strings.ToLower(t.name)]
	if err := t.authorize(op, st, need); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if st == nil {
		s.mu.Unlock()
		return nil, errors.NewNotFoundError("table", t.name)
	}
	return st, nil
}

// authorize applies SAS rules. need == 0 marks operations a SAS can never perform.
func (t *Table) authorize(op string, st *tableState, need sas.Permissions) error {
	if t.token == nil {
		return nil
	}
	deny := func(code string) error {
		return errors.NewAuthorizationError(op, t.name, code)
	}
	if need == 0 {
		return deny("AuthorizationResourceTypeMismatch")
	}
	if !strings.EqualFold(t.token.TableName, t.name) {
		return deny("AuthorizationResourceTypeMismatch")
	}
	policy := *t.token.SourcePolicy
	if policy.Name != "" {
		stored, ok := findPolicy(st, policy.Name)
		if !ok {
			return deny("AuthenticationFailed")
		}
		policy = stored
	}
	if !policy.Active(t.svc.now()) {
		return deny("AuthenticationFailed")
	}
	if !policy.Permissions.Has(need) {
		return deny("AuthorizationPermissionMismatch")
	}
	return nil
}

func findPolicy(st *tableState, name string) (sas.Policy, bool) {
	if st == nil {
		return sas.Policy{}, false
	}
	for _, p := range st.policies {
		if p.Name == name {
			return p, true
		}
	}
	return sas.Policy{}, false
}

func (t *Table) Upsert(ctx context.Context, e *entity.Entity, mode datastore.UpdateMode) (*entity.Entity, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	st, err := t.begin(ctx, "upsert", sas.Add|sas.Update)
	if err != nil {
		return nil, err
	}
	defer t.svc.mu.Unlock()

	existing := st.rows[e.Key()]
	return t.write(st, e, existing, mode), nil
}

func (t *Table) Insert(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	st, err := t.begin(ctx, "insert", sas.Add)
	if err != nil {
		return nil, err
	}
	defer t.svc.mu.Unlock()

	if _, ok := st.rows[e.Key()]; ok {
		return nil, errors.NewAlreadyExistsError("entity", e.Key().String())
	}
	return t.write(st, e, nil, datastore.Replace), nil
}

func (t *Table) Update(ctx context.Context, e *entity.Entity, mode datastore.UpdateMode, etag string) (*entity.Entity, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	st, err := t.begin(ctx, "update", sas.Update)
	if err != nil {
		return nil, err
	}
	defer t.svc.mu.Unlock()

	existing, ok := st.rows[e.Key()]
	if !ok {
		return nil, errors.NewConditionFailedError("update", "entity "+e.Key().String()+" does not exist")
	}
	if !etagMatches(etag, existing.ETag) {
		return nil, errors.NewConditionFailedError("update", "etag mismatch")
	}
	return t.write(st, e, existing, mode), nil
}

// write stores e over existing and returns what a caller sees: the sent entity with
// the new ETag. Must be called with s.mu held.
func (t *Table) write(st *tableState, e, existing *entity.Entity, mode datastore.UpdateMode) *entity.Entity {
	now := t.svc.now().UTC()
	row := entity.New(e.PartitionKey(), e.RowKey())
	if existing != nil && mode == datastore.Merge {
		row.Merge(existing.Properties())
	}
	for name, v := range e.Properties() {
		nv, _ := entity.Normalize(v)
		row.With(name, nv)
	}
	row.Timestamp = now
	row.ETag = t.svc.nextETag(now)
	st.rows[row.Key()] = row

	out := e.Clone()
	out.ETag = row.ETag
	out.Timestamp = now
	return out
}

func (t *Table) Get(ctx context.Context, key entity.Key) (*entity.Entity, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	st, err := t.begin(ctx, "get", sas.Query)
	if err != nil {
		return nil, err
	}
	defer t.svc.mu.Unlock()

	row, ok := st.rows[key]
	if !ok {
		return nil, errors.NewNotFoundError("entity", key.String())
	}
	return row.Clone(), nil
}

func (t *Table) Delete(ctx context.Context, key entity.Key, etag string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	st, err := t.begin(ctx, "delete", sas.Delete)
	if err != nil {
		return err
	}
	defer t.svc.mu.Unlock()

	row, ok := st.rows[key]
	if !ok {
		return errors.NewConditionFailedError("delete", "entity "+key.String()+" does not exist")
	}
	if !etagMatches(etag, row.ETag) {
		return errors.NewConditionFailedError("delete", "etag mismatch")
	}
	delete(st.rows, key)
	return nil
}

func (t *Table) Query(ctx context.Context, params *storagemodels.QueryParams) ([]*entity.Entity, error) {
	if params == nil {
		params = &storagemodels.QueryParams{}
	}
	match, err := compileFilter(params.Filter)
	if err != nil {
		return nil, err
	}
	st, err := t.begin(ctx, "query", sas.Query)
	if err != nil {
		return nil, err
	}
	rows := st.sorted()
	t.svc.mu.Unlock()

	var out []*entity.Entity
	for _, row := range rows {
		if !match(row) {
			continue
		}
		out = append(out, project(row, params.Select))
		if params.Limit > 0 && len(out) >= params.Limit {
			break
		}
	}
	return out, nil
}

func (t *Table) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*entity.Entity] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult[*entity.Entity], options.BufferSize)
	go func() {
		defer close(resultCh)
		start := time.Now()
		rows, err := t.Query(ctx, params)
		if err != nil {
			select {
			case <-ctx.Done():
			case resultCh <- storagemodels.StreamResult[*entity.Entity]{Error: err, Meta: storagemodels.StreamMeta{Timestamp: time.Now()}}:
			}
			return
		}
		pageSize := int(options.PageSize)
		if pageSize <= 0 {
			pageSize = len(rows) + 1
		}
		for i, row := range rows {
			result := storagemodels.StreamResult[*entity.Entity]{
				Item: row,
				Meta: storagemodels.StreamMeta{Index: int64(i), PageNumber: i/pageSize + 1, Timestamp: time.Now()},
			}
			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}
			if options.ProgressHandler != nil && ((i+1)%pageSize == 0 || i == len(rows)-1) {
				options.ProgressHandler(storagemodels.StreamProgress{
					ItemsProcessed: int64(i + 1),
					PagesProcessed: i/pageSize + 1,
					StartTime:      start,
				})
			}
		}
	}()
	return resultCh
}

func (t *Table) GetAccessPolicies(ctx context.Context) ([]sas.Policy, error) {
	st, err := t.begin(ctx, "get_access_policy", 0)
	if err != nil {
		return nil, err
	}
	defer t.svc.mu.Unlock()
	return append([]sas.Policy(nil), st.policies...), nil
}

func (t *Table) SetAccessPolicies(ctx context.Context, policies []sas.Policy) error {
	if len(policies) > 5 {
		return errors.NewValidationError("policies", "a table holds at most 5 access policies")
	}
	st, err := t.begin(ctx, "set_access_policy", 0)
	if err != nil {
		return err
	}
	defer t.svc.mu.Unlock()
	st.policies = make([]sas.Policy, 0, len(policies))
	for _, p := range policies {
		p.Start = p.Start.UTC().Truncate(time.Second)
		p.Expiry = p.Expiry.UTC().Truncate(time.Second)
		st.policies = append(st.policies, p)
	}
	return nil
}

func etagMatches(want, have string) bool {
	return want == "" || want == datastore.AnyETag || want == have
}

func project(row *entity.Entity, fields []string) *entity.Entity {
	if len(fields) == 0 {
		return row
	}
	out := entity.New(row.PartitionKey(), row.RowKey())
	out.ETag = row.ETag
	out.Timestamp = row.Timestamp
	for _, f := range fields {
		if v, ok := row.Get(f); ok {
			out.With(f, v)
		}
	}
	return out
}
