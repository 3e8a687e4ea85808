/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/datastore/mock"
	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/sas"
	"github.com/suparena/tablestore/storagemodels"
)

const testKey = "dGVzdGtleXRlc3RrZXl0ZXN0a2V5dGVzdGtleQ=="

func newTable(t *testing.T) (*mock.Service, datastore.Table) {
	t.Helper()
	svc := mock.New()
	created, err := svc.EnsureTable(context.Background(), "Customers")
	require.NoError(t, err)
	require.True(t, created)
	tbl, err := svc.Table("Customers")
	require.NoError(t, err)
	return svc, tbl
}

func sasTable(t *testing.T, svc *mock.Service, req sas.Request) datastore.Table {
	t.Helper()
	cred, err := aztables.NewSharedKeyCredential("demo", testKey)
	require.NoError(t, err)
	tok, err := sas.Generate(sas.Target{TableURL: "https://demo.table.core.windows.net/Customers", TableName: "Customers"}, cred, req)
	require.NoError(t, err)
	parsed, err := sas.Parse(tok.URI)
	require.NoError(t, err)
	tbl, err := svc.SASTable(parsed)
	require.NoError(t, err)
	return tbl
}

func TestEnsureTable(t *testing.T) {
	svc, _ := newTable(t)
	created, err := svc.EnsureTable(context.Background(), "customers")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []string{"Customers"}, svc.Tables())

	_, err = svc.EnsureTable(context.Background(), "x")
	assert.True(t, errors.IsInvalidArgument(err))

	down := mock.New().WithUnavailable("http://127.0.0.1:10002", "start the emulator", nil)
	_, err = down.EnsureTable(context.Background(), "Customers")
	assert.True(t, errors.IsServiceUnavailable(err))
	assert.Contains(t, err.Error(), "start the emulator")
}

func TestMergePreservesAndReplaceDiscards(t *testing.T) {
	ctx := context.Background()
	_, tbl := newTable(t)

	first := entity.New("Harp", "Walter").
		With("Email", "Walter@contoso.com").
		With("PhoneNumber", "425-555-0101")
	_, err := tbl.Upsert(ctx, first, datastore.Merge)
	require.NoError(t, err)

	got, err := tbl.Get(ctx, first.Key())
	require.NoError(t, err)
	assert.True(t, got.Covers(first))

	_, err = tbl.Upsert(ctx, entity.New("Harp", "Walter").With("PhoneNumber", "425-555-0105"), datastore.Merge)
	require.NoError(t, err)
	got, err = tbl.Get(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, "Walter@contoso.com", got.GetString("Email"))
	assert.Equal(t, "425-555-0105", got.GetString("PhoneNumber"))

	_, err = tbl.Upsert(ctx, entity.New("Harp", "Walter").With("PhoneNumber", "425-555-0199"), datastore.Replace)
	require.NoError(t, err)
	got, err = tbl.Get(ctx, first.Key())
	require.NoError(t, err)
	_, hasEmail := got.Get("Email")
	assert.False(t, hasEmail)
	assert.Equal(t, "425-555-0199", got.GetString("PhoneNumber"))
}

func TestETagsChangeOnEveryWrite(t *testing.T) {
	ctx := context.Background()
	_, tbl := newTable(t)
	e := entity.New("p", "r").With("n", 1)

	a, err := tbl.Upsert(ctx, e, datastore.Merge)
	require.NoError(t, err)
	b, err := tbl.Upsert(ctx, e, datastore.Merge)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ETag)
	assert.NotEqual(t, a.ETag, b.ETag)

	_, err = tbl.Update(ctx, e, datastore.Merge, a.ETag)
	assert.True(t, errors.IsPreconditionFailed(err))
	_, err = tbl.Update(ctx, e, datastore.Merge, b.ETag)
	require.NoError(t, err)
}

func TestStrictDelete(t *testing.T) {
	ctx := context.Background()
	_, tbl := newTable(t)
	key := entity.Key{PartitionKey: "Harp", RowKey: "Walter"}

	assert.True(t, errors.IsPreconditionFailed(tbl.Delete(ctx, key, "")))

	stored, err := tbl.Upsert(ctx, entity.New("Harp", "Walter").With("Email", "w@contoso.com"), datastore.Merge)
	require.NoError(t, err)

	assert.True(t, errors.IsPreconditionFailed(tbl.Delete(ctx, key, `W/"stale"`)))
	require.NoError(t, tbl.Delete(ctx, key, stored.ETag))
	assert.True(t, errors.IsPreconditionFailed(tbl.Delete(ctx, key, datastore.AnyETag)))

	_, err = tbl.Get(ctx, key)
	assert.True(t, errors.IsNotFound(err))
}

func TestInsertAndUpdateRequireState(t *testing.T) {
	ctx := context.Background()
	_, tbl := newTable(t)
	e := entity.New("p", "r").With("v", "x")

	_, err := tbl.Update(ctx, e, datastore.Replace, "")
	assert.True(t, errors.IsPreconditionFailed(err))

	_, err = tbl.Insert(ctx, e)
	require.NoError(t, err)
	_, err = tbl.Insert(ctx, e)
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestMissingTable(t *testing.T) {
	svc := mock.New()
	tbl, err := svc.Table("Ghosts")
	require.NoError(t, err)
	_, err = tbl.Get(context.Background(), entity.Key{PartitionKey: "a", RowKey: "b"})
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(svc.DeleteTable(context.Background(), "Ghosts")))
}

func TestQueryAndStream(t *testing.T) {
	ctx := context.Background()
	_, tbl := newTable(t)
	for _, row := range []struct {
		pk, rk string
		age    int
	}{
		{"Smith", "Jeff", 30}, {"Smith", "Ben", 41}, {"Jones", "Ann", 25}, {"O'Brien", "Pat", 52},
	} {
		_, err := tbl.Upsert(ctx, entity.New(row.pk, row.rk).With("Age", row.age), datastore.Merge)
		require.NoError(t, err)
	}

	all, err := tbl.Query(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Jones", all[0].PartitionKey())

	smiths, err := tbl.Query(ctx, &storagemodels.QueryParams{Filter: storagemodels.PartitionFilter("Smith")})
	require.NoError(t, err)
	require.Len(t, smiths, 2)
	assert.Equal(t, "Ben", smiths[0].RowKey())

	irish, err := tbl.Query(ctx, &storagemodels.QueryParams{Filter: storagemodels.PartitionFilter("O'Brien")})
	require.NoError(t, err)
	require.Len(t, irish, 1)

	older, err := tbl.Query(ctx, &storagemodels.QueryParams{Filter: "Age ge 40", Select: []string{"Age"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, older, 1)

	_, err = tbl.Query(ctx, &storagemodels.QueryParams{Filter: "startswith(RowKey, 'a')"})
	assert.True(t, errors.IsInvalidArgument(err))

	var pages []int
	count := 0
	for res := range tbl.Stream(ctx, nil, storagemodels.WithPageSize(3), storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
		pages = append(pages, p.PagesProcessed)
	})) {
		require.NoError(t, res.Error)
		count++
	}
	assert.Equal(t, 4, count)
	assert.Equal(t, []int{1, 2}, pages)
}

func TestFullSASAllowsEverything(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTable(t)
	tbl := sasTable(t, svc, sas.Request{AdHoc: &sas.Policy{Expiry: time.Now().Add(time.Hour), Permissions: sas.All}})

	e := entity.New("Johnson", "Mary").With("Email", "mary@contoso.com")
	_, err := tbl.Insert(ctx, e)
	require.NoError(t, err)
	_, err = tbl.Get(ctx, e.Key())
	require.NoError(t, err)
	_, err = tbl.Update(ctx, e.With("PhoneNumber", "425-555-0104"), datastore.Merge, "")
	require.NoError(t, err)
	require.NoError(t, tbl.Delete(ctx, e.Key(), ""))

	_, err = tbl.GetAccessPolicies(ctx)
	assert.True(t, errors.IsAuthorizationDenied(err))
}

func TestQueryOnlySASDeniesWrites(t *testing.T) {
	ctx := context.Background()
	svc, owner := newTable(t)
	e := entity.New("Johnson", "Mary").With("Email", "mary@contoso.com")
	_, err := owner.Upsert(ctx, e, datastore.Merge)
	require.NoError(t, err)

	tbl := sasTable(t, svc, sas.Request{AdHoc: &sas.Policy{Expiry: time.Now().Add(time.Hour), Permissions: sas.Query}})

	_, err = tbl.Get(ctx, e.Key())
	require.NoError(t, err)
	_, err = tbl.Insert(ctx, entity.New("Johnson", "Bob"))
	assert.True(t, errors.IsAuthorizationDenied(err))
	_, err = tbl.Update(ctx, e, datastore.Merge, "")
	assert.True(t, errors.IsAuthorizationDenied(err))
	assert.True(t, errors.IsAuthorizationDenied(tbl.Delete(ctx, e.Key(), "")))

	_, err = owner.Get(ctx, e.Key())
	require.NoError(t, err)
}

func TestExpiredSASIsDenied(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := mock.New().WithClock(func() time.Time { return now })
	_, err := svc.EnsureTable(context.Background(), "Customers")
	require.NoError(t, err)

	tbl := sasTable(t, svc, sas.Request{AdHoc: &sas.Policy{Expiry: now.Add(time.Minute), Permissions: sas.All}})
	_, err = tbl.Query(context.Background(), nil)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = tbl.Query(context.Background(), nil)
	assert.True(t, errors.IsAuthorizationDenied(err))
}

func TestDeletingStoredPolicyRevokesSAS(t *testing.T) {
	ctx := context.Background()
	svc, owner := newTable(t)
	require.NoError(t, owner.SetAccessPolicies(ctx, []sas.Policy{{
		Name:        "customer-policy",
		Expiry:      time.Now().Add(time.Hour),
		Permissions: sas.Query | sas.Add | sas.Update,
	}}))

	tbl := sasTable(t, svc, sas.Request{StoredPolicy: "customer-policy"})
	_, err := tbl.Upsert(ctx, entity.New("Wilson", "Joe").With("Email", "joe@contoso.com"), datastore.Merge)
	require.NoError(t, err)
	assert.True(t, errors.IsAuthorizationDenied(tbl.Delete(ctx, entity.Key{PartitionKey: "Wilson", RowKey: "Joe"}, "")))

	require.NoError(t, owner.SetAccessPolicies(ctx, nil))
	_, err = tbl.Query(ctx, nil)
	assert.True(t, errors.IsAuthorizationDenied(err))
}

func TestInjectedFailures(t *testing.T) {
	svc, tbl := newTable(t)
	boom := errors.NewTransportError("upsert", 503, nil)
	svc.WithFailure("upsert", boom)

	_, err := tbl.Upsert(context.Background(), entity.New("a", "b").With("x", 1), datastore.Merge)
	assert.Same(t, boom, err)

	svc.WithFailure("upsert", nil)
	_, err = tbl.Upsert(context.Background(), entity.New("a", "b").With("x", 1), datastore.Merge)
	require.NoError(t, err)
}

func TestConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	svc, tbl := newTable(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tbl.Upsert(ctx, entity.New("p", "r").With("n", i), datastore.Merge)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Len(t, svc.Entities("Customers"), 1)
}

func TestCancelledContext(t *testing.T) {
	_, tbl := newTable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tbl.Get(ctx, entity.Key{PartitionKey: "a", RowKey: "b"})
	assert.ErrorIs(t, err, context.Canceled)
}
