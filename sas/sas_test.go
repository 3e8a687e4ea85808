/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sas

import (
	"net/url"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tserrors "github.com/suparena/tablestore/errors"
)

const testKey = "dGVzdGtleXRlc3RrZXl0ZXN0a2V5dGVzdGtleQ=="

func testCredential(t *testing.T) *aztables.SharedKeyCredential {
	t.Helper()
	cred, err := aztables.NewSharedKeyCredential("demo", testKey)
	require.NoError(t, err)
	return cred
}

var target = Target{TableURL: "https://demo.table.core.windows.net/Customers", TableName: "Customers"}

func TestPermissionsString(t *testing.T) {
	assert.Equal(t, "raud", All.String())
	assert.Equal(t, "ru", (Update | Query).String())
	assert.Equal(t, "", Permissions(0).String())
	assert.Equal(t, []string{"Query", "Delete"}, (Query | Delete).Names())
	assert.True(t, All.Has(Add|Update))
	assert.False(t, Query.Has(Add))

	sdk := (Query | Add).SDK()
	assert.True(t, sdk.Read)
	assert.True(t, sdk.Add)
	assert.False(t, sdk.Delete)
}

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		in   string
		want Permissions
	}{
		{"raud", All},
		{"DR", Query | Delete},
		{"query,add", Query | Add},
		{"Add", Add},
		{"update delete", Update | Delete},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePermissions(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParsePermissions("rwx")
	assert.True(t, tserrors.IsInvalidArgument(err))
}

func TestRequestRequiresExactlyOneMode(t *testing.T) {
	adHoc := &Policy{Expiry: time.Now().Add(time.Hour), Permissions: Query}

	err := Request{AdHoc: adHoc, StoredPolicy: "readers"}.Validate()
	assert.True(t, tserrors.IsInvalidArgument(err))

	err = Request{}.Validate()
	assert.True(t, tserrors.IsInvalidArgument(err))

	assert.NoError(t, Request{AdHoc: adHoc}.Validate())
	assert.NoError(t, Request{StoredPolicy: "readers"}.Validate())
}

func TestPolicyValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		policy Policy
	}{
		{"no expiry", Policy{Permissions: Query}},
		{"expiry before start", Policy{Start: now, Expiry: now.Add(-time.Minute), Permissions: Query}},
		{"no permissions", Policy{Expiry: now.Add(time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tserrors.IsInvalidArgument(tt.policy.Validate()))
		})
	}

	p := Policy{Start: now.Add(-time.Minute), Expiry: now.Add(time.Minute), Permissions: Query}
	assert.True(t, p.Active(now))
	assert.False(t, p.Active(now.Add(2*time.Minute)))
	assert.True(t, p.Expired(now.Add(time.Minute)))
}

func TestGenerateAdHoc(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	tok, err := Generate(target, testCredential(t), Request{
		AdHoc: &Policy{Expiry: expiry, Permissions: Query | Add},
	})
	require.NoError(t, err)

	u, err := url.Parse(tok.URI)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/Customers", u.Path)
	assert.Equal(t, "ra", q.Get(ParamPermissions))
	assert.NotEmpty(t, q.Get(ParamExpiry))
	assert.NotEmpty(t, q.Get(ParamSignature))
	assert.Empty(t, q.Get(ParamIdentifier))
	assert.False(t, tok.StoredPolicyBacked())
	assert.Equal(t, Query|Add, tok.SourcePolicy.Permissions)

	parsed, err := Parse(tok.URI)
	require.NoError(t, err)
	assert.Equal(t, "Customers", parsed.TableName)
	assert.Equal(t, Query|Add, parsed.SourcePolicy.Permissions)
	assert.True(t, expiry.Equal(parsed.SourcePolicy.Expiry))
}

func TestGenerateStoredPolicy(t *testing.T) {
	tok, err := Generate(target, testCredential(t), Request{StoredPolicy: "readers"})
	require.NoError(t, err)

	u, err := url.Parse(tok.URI)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "readers", q.Get(ParamIdentifier))
	assert.Empty(t, q.Get(ParamPermissions))
	assert.Empty(t, q.Get(ParamExpiry))
	assert.True(t, tok.StoredPolicyBacked())

	parsed, err := Parse(tok.URI)
	require.NoError(t, err)
	assert.Equal(t, "readers", parsed.SourcePolicy.Name)
}

func TestGenerateRejectsMisuse(t *testing.T) {
	cred := testCredential(t)
	adHoc := &Policy{Expiry: time.Now().Add(time.Hour), Permissions: Query}

	_, err := Generate(target, cred, Request{AdHoc: adHoc, StoredPolicy: "readers"})
	assert.True(t, tserrors.IsInvalidArgument(err))

	_, err = Generate(target, nil, Request{AdHoc: adHoc})
	assert.True(t, tserrors.IsInvalidArgument(err))

	_, err = Generate(Target{}, cred, Request{AdHoc: adHoc})
	assert.True(t, tserrors.IsInvalidArgument(err))

	_, err = Generate(target, cred, Request{AdHoc: adHoc, IPRange: "not-an-ip"})
	assert.True(t, tserrors.IsInvalidArgument(err))
}

func TestParseRejectsIncompleteURLs(t *testing.T) {
	for _, raw := range []string{
		"not a url",
		"https://demo.table.core.windows.net/Customers",
		"https://demo.table.core.windows.net/Customers?sig=abc",
		"https://demo.table.core.windows.net/Customers?sig=abc&sp=r",
	} {
		_, err := Parse(raw)
		assert.True(t, tserrors.IsInvalidArgument(err), raw)
	}
}

func TestParseKeepsTableCase(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"path wins over lowercase tn", "https://demo.table.core.windows.net/Customers?tn=customers&si=readers&sig=abc", "Customers"},
		{"path only", "https://demo.table.core.windows.net/Customers?si=readers&sig=abc", "Customers"},
		{"tn when path names the account", "http://127.0.0.1:10002/devstoreaccount1?tn=customers&si=readers&sig=abc", "customers"},
		{"tn without path", "https://demo.table.core.windows.net/?tn=customers&si=readers&sig=abc", "customers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Parse(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok.TableName)
		})
	}
}

func TestRedact(t *testing.T) {
	out := Redact("https://demo.table.core.windows.net/Customers?si=readers&sig=secret")
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "si=readers")
}
