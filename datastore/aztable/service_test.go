/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package aztable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/tablestore/account"
	"github.com/suparena/tablestore/entity"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

const testKey = "dGVzdGtleXRlc3RrZXl0ZXN0a2V5dGVzdGtleQ=="

// fakeService answers just enough of the REST surface to exercise status mapping.
func fakeService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	acct, err := account.Parse("AccountName=demo;AccountKey=" + testKey + ";TableEndpoint=" + srv.URL)
	require.NoError(t, err)
	svc, err := NewService(acct)
	require.NoError(t, err)
	return svc
}

func fail(w http.ResponseWriter, status int, code string) {
	w.Header().Set("x-ms-error-code", code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"odata.error":{"code":"` + code + `","message":{"lang":"en-US","value":"` + code + `"}}}`))
}

func TestEnsureTableIsIdempotent(t *testing.T) {
	var creates atomic.Int32
	svc := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/Tables") {
			if creates.Add(1) == 1 {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			fail(w, http.StatusConflict, "TableAlreadyExists")
			return
		}
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	})

	created, err := svc.EnsureTable(context.Background(), "Customers")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureTable(context.Background(), "Customers")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int32(2), creates.Load())
}

func TestEnsureTableRejectsBadNames(t *testing.T) {
	svc := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s %s", r.Method, r.URL.Path)
	})
	_, err := svc.EnsureTable(context.Background(), "no-dashes")
	assert.True(t, tserrors.IsInvalidArgument(err))
}

func TestEntityStatusMapping(t *testing.T) {
	svc := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			fail(w, http.StatusNotFound, "ResourceNotFound")
		case http.MethodGet:
			fail(w, http.StatusForbidden, "AuthorizationPermissionMismatch")
		default:
			fail(w, http.StatusServiceUnavailable, "ServerBusy")
		}
	})
	tbl, err := svc.Table("Customers")
	require.NoError(t, err)
	ctx := context.Background()
	key := entity.Key{PartitionKey: "Harp", RowKey: "Walter"}

	err = tbl.Delete(ctx, key, "")
	assert.True(t, tserrors.IsPreconditionFailed(err))

	_, err = tbl.Get(ctx, key)
	assert.True(t, tserrors.IsAuthorizationDenied(err))

	_, err = tbl.Insert(ctx, entity.New("Harp", "Walter").With("Email", "Walter@contoso.com"))
	assert.True(t, tserrors.IsTransport(err))
	assert.True(t, tserrors.IsRetryable(err))
}

func TestStreamContinuesAfterBackoff(t *testing.T) {
	var requests atomic.Int32
	svc := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fail(w, http.StatusServiceUnavailable, "ServerBusy")
	})
	tbl, err := svc.Table("Customers")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	var handled atomic.Int32
	results := tbl.Stream(ctx, nil,
		storagemodels.WithRetryBackoff(100*time.Millisecond),
		storagemodels.WithErrorHandler(func(err error) bool {
			handled.Add(1)
			return tserrors.IsRetryable(err)
		}),
	)
	for res := range results {
		t.Errorf("unexpected result %+v", res)
	}

	assert.GreaterOrEqual(t, handled.Load(), int32(2))
	assert.LessOrEqual(t, requests.Load(), int32(5))
}

func TestStreamStopsOnPermanentError(t *testing.T) {
	var requests atomic.Int32
	svc := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fail(w, http.StatusForbidden, "AuthorizationFailure")
	})
	tbl, err := svc.Table("Customers")
	require.NoError(t, err)

	var got []error
	for res := range tbl.Stream(context.Background(), nil, storagemodels.WithErrorHandler(func(error) bool { return true })) {
		got = append(got, res.Error)
	}
	require.Len(t, got, 1)
	assert.True(t, tserrors.IsAuthorizationDenied(got[0]))
	assert.Equal(t, int32(1), requests.Load())
}
