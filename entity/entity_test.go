/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tserrors "github.com/suparena/tablestore/errors"
)

func TestEntityIdentity(t *testing.T) {
	a := New("1", "Aamir Akhtar").With("Email", "a@x.com")
	b := New("1", "Aamir Akhtar").With("PhoneNumber", "425-555-0101")
	c := New("2", "Aamir Akhtar")

	assert.True(t, a.SameIdentity(b))
	assert.False(t, a.SameIdentity(c))
	assert.False(t, a.Equal(b), "same key with different properties is not equal")
	assert.Equal(t, "1|Aamir Akhtar", a.Key().String())
}

func TestEntityEqualNormalizesNumbers(t *testing.T) {
	a := New("p", "r").With("Count", 3).With("Ratio", float32(0.5))
	b := New("p", "r").With("Count", int32(3)).With("Ratio", 0.5)
	assert.True(t, a.Equal(b))

	b.With("Count", int64(4))
	assert.False(t, a.Equal(b))
}

func TestEntityMergeKeepsUnspecified(t *testing.T) {
	stored := New("1", "Aamir Akhtar").
		With("Email", "a@x.com").
		With("PhoneNumber", "425-555-0101")

	stored.Merge(New("1", "Aamir Akhtar").With("PhoneNumber", "425-555-0105").Properties())

	assert.Equal(t, "a@x.com", stored.GetString("Email"))
	assert.Equal(t, "425-555-0105", stored.GetString("PhoneNumber"))
}

func TestEntityCloneIsIndependent(t *testing.T) {
	orig := New("p", "r").With("Blob", []byte{1, 2, 3})
	orig.ETag = `W/"1"`

	clone := orig.Clone()
	clone.With("Name", "x")
	blob, _ := clone.Get("Blob")
	blob.([]byte)[0] = 9

	assert.Equal(t, 1, orig.Len())
	v, _ := orig.Get("Blob")
	assert.Equal(t, []byte{1, 2, 3}, v)
	assert.Equal(t, orig.ETag, clone.ETag)
}

func TestEntityValidate(t *testing.T) {
	tests := []struct {
		name   string
		entity *Entity
		ok     bool
	}{
		{"valid", New("1", "Aamir Akhtar").With("Email", "a@x.com").With("Seen", time.Now()).With("Id", uuid.New()), true},
		{"empty partition key", New("", "r"), false},
		{"slash in row key", New("p", "a/b"), false},
		{"hash in partition key", New("a#b", "r"), false},
		{"control character", New("p", "a\tb"), false},
		{"reserved property", New("p", "r").With("RowKey", "x"), false},
		{"odata property", New("p", "r").With("odata.etag", "x"), false},
		{"nil value", New("p", "r").With("Email", nil), false},
		{"unsupported value", New("p", "r").With("Tags", []string{"a"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, tserrors.IsInvalidArgument(err), "expected invalid argument, got %v", err)
		})
	}
}

type customer struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Email        string `json:"Email,omitempty"`
	PhoneNumber  string `json:"PhoneNumber,omitempty"`
	Visits       int    `json:"Visits,omitempty"`
}

func TestStructConversion(t *testing.T) {
	in := customer{PartitionKey: "2", RowKey: "Johnson Mary", Email: "mary@gmail.com", Visits: 7}

	e, err := FromStruct(in)
	require.NoError(t, err)
	assert.Equal(t, Key{PartitionKey: "2", RowKey: "Johnson Mary"}, e.Key())
	assert.Equal(t, "mary@gmail.com", e.GetString("Email"))
	visits, _ := e.Get("Visits")
	assert.Equal(t, int32(7), visits)
	_, hasPhone := e.Get("PhoneNumber")
	assert.False(t, hasPhone, "omitempty fields must not become properties")

	var out customer
	require.NoError(t, ToStruct(e, &out))
	assert.Equal(t, in, out)
}

func TestWireRoundTrip(t *testing.T) {
	e := New("1", "Aamir Akhtar").
		With("Email", "a@x.com").
		With("Active", true).
		With("Balance", int64(1)<<40)

	data, err := MarshalWire(e)
	require.NoError(t, err)

	back, err := UnmarshalWire(data)
	require.NoError(t, err)
	assert.Equal(t, e.Key(), back.Key())
	assert.Equal(t, "a@x.com", back.GetString("Email"))
	active, _ := back.Get("Active")
	assert.Equal(t, true, active)
	balance, _ := back.Get("Balance")
	assert.Equal(t, int64(1)<<40, balance)
}

func TestWireKeepsWholeDoubles(t *testing.T) {
	data, err := MarshalWire(New("p", "r").With("Score", 2.0).With("Count", int32(2)))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Score@odata.type":"Edm.Double"`)
	assert.NotContains(t, string(data), `"Count@odata.type"`)

	back, err := UnmarshalWire(data)
	require.NoError(t, err)
	score, _ := back.Get("Score")
	assert.Equal(t, 2.0, score)
	count, _ := back.Get("Count")
	assert.Equal(t, int32(2), count)
	_, annotated := back.Get("Score@odata.type")
	assert.False(t, annotated)

	back, err = UnmarshalWire([]byte(`{"PartitionKey":"p","RowKey":"r","Score":2.0,"Ratio":1.5e3,"Count":2}`))
	require.NoError(t, err)
	score, _ = back.Get("Score")
	assert.Equal(t, 2.0, score)
	ratio, _ := back.Get("Ratio")
	assert.Equal(t, 1500.0, ratio)
	count, _ = back.Get("Count")
	assert.Equal(t, int32(2), count)
}

func TestMarshalWireRejectsInvalid(t *testing.T) {
	_, err := MarshalWire(New("p", "r").With("Timestamp", time.Now()))
	assert.True(t, tserrors.IsInvalidArgument(err))
}
