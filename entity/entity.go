/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	tserrors "github.com/suparena/tablestore/errors"
)

// Reserved property names managed by the service.
const (
	PartitionKeyProperty = "PartitionKey"
	RowKeyProperty       = "RowKey"
	TimestampProperty    = "Timestamp"
)

const maxKeyLength = 1024

// Key is the compound primary key of an entity within a table.
type Key struct {
	PartitionKey string
	RowKey       string
}

// String renders the key as "partition|row".
func (k Key) String() string {
	return k.PartitionKey + "|" + k.RowKey
}

// Validate checks the key against the characters the service forbids in key values.
func (k Key) Validate() error {
	if err := validateKeyPart(PartitionKeyProperty, k.PartitionKey); err != nil {
		return err
	}
	return validateKeyPart(RowKeyProperty, k.RowKey)
}

func validateKeyPart(field, v string) error {
	if v == "" {
		return tserrors.NewValidationError(field, "must not be empty")
	}
	if len(v) > maxKeyLength {
		return tserrors.NewValidationError(field, fmt.Sprintf("must be at most %d bytes", maxKeyLength))
	}
	for _, r := range v {
		switch {
		case r == '/' || r == '\\' || r == '#' || r == '?':
			return tserrors.NewValidationError(field, fmt.Sprintf("contains forbidden character %q", r))
		case r < 0x20 || (r >= 0x7f && r <= 0x9f):
			return tserrors.NewValidationError(field, "contains a control character")
		}
	}
	return nil
}

// Keyed is implemented by anything with a compound-key identity.
type Keyed interface {
	Key() Key
}

// Record is the storage-agnostic entity capability: an identity plus a property bag.
type Record interface {
	Keyed
	Properties() map[string]any
}

// Entity is a table row. The key is fixed at construction; properties are mutable.
// ETag and Timestamp are assigned by the service and are ignored by Equal.
type Entity struct {
	key   Key
	props map[string]any

	ETag      string
	Timestamp time.Time
}

// New returns an empty entity for the given key.
func New(partitionKey, rowKey string) *Entity {
	return &Entity{
		key:   Key{PartitionKey: partitionKey, RowKey: rowKey},
		props: make(map[string]any),
	}
}

// FromRecord copies any Record into an Entity. An *Entity is cloned.
func FromRecord(r Record) *Entity {
	if e, ok := r.(*Entity); ok {
		return e.Clone()
	}
	e := New(r.Key().PartitionKey, r.Key().RowKey)
	for k, v := range r.Properties() {
		e.props[k] = v
	}
	return e
}

// WithKey returns a copy of the entity under a different key. Service metadata is dropped.
func (e *Entity) WithKey(partitionKey, rowKey string) *Entity {
	c := e.Clone()
	c.key = Key{PartitionKey: partitionKey, RowKey: rowKey}
	c.ETag = ""
	c.Timestamp = time.Time{}
	return c
}

// Key returns the entity's compound key.
func (e *Entity) Key() Key { return e.key }

// PartitionKey returns the partition key.
func (e *Entity) PartitionKey() string { return e.key.PartitionKey }

// RowKey returns the row key.
func (e *Entity) RowKey() string { return e.key.RowKey }

// With sets a property and returns the entity for chaining.
// Values are checked by Validate, which every table operation calls.
func (e *Entity) With(name string, value any) *Entity {
	if e.props == nil {
		e.props = make(map[string]any)
	}
	e.props[name] = value
	return e
}

// Get returns a property value.
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.props[name]
	return v, ok
}

// GetString returns a string property, or "" when absent or not a string.
func (e *Entity) GetString(name string) string {
	s, _ := e.props[name].(string)
	return s
}

// Remove deletes a property.
func (e *Entity) Remove(name string) {
	delete(e.props, name)
}

// Properties returns a copy of the property bag.
func (e *Entity) Properties() map[string]any {
	out := make(map[string]any, len(e.props))
	for k, v := range e.props {
		out[k] = v
	}
	return out
}

// PropertyNames returns the property names in sorted order.
func (e *Entity) PropertyNames() []string {
	names := make([]string, 0, len(e.props))
	for k := range e.props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of properties.
func (e *Entity) Len() int { return len(e.props) }

// Clone returns a deep copy. Binary values are copied.
func (e *Entity) Clone() *Entity {
	c := &Entity{
		key:       e.key,
		props:     make(map[string]any, len(e.props)),
		ETag:      e.ETag,
		Timestamp: e.Timestamp,
	}
	for k, v := range e.props {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		c.props[k] = v
	}
	return c
}

// Merge copies props over the entity's properties, keeping properties not present in props.
func (e *Entity) Merge(props map[string]any) {
	if e.props == nil {
		e.props = make(map[string]any, len(props))
	}
	for k, v := range props {
		e.props[k] = v
	}
}

// SameIdentity reports whether both refer to the same compound key.
func (e *Entity) SameIdentity(other Keyed) bool {
	return other != nil && e.key == other.Key()
}

// Equal compares keys and properties. Service metadata is not compared.
func (e *Entity) Equal(other *Entity) bool {
	if other == nil || e.key != other.key || len(e.props) != len(other.props) {
		return false
	}
	for k, v := range e.props {
		ov, ok := other.props[k]
		if !ok || !ValueEqual(v, ov) {
			return false
		}
	}
	return true
}

// Covers reports whether every property of subset is present in e with an equal value.
func (e *Entity) Covers(subset Record) bool {
	if e.key != subset.Key() {
		return false
	}
	for k, v := range subset.Properties() {
		ov, ok := e.props[k]
		if !ok || !ValueEqual(v, ov) {
			return false
		}
	}
	return true
}

// Validate checks the key and every property name and value.
func (e *Entity) Validate() error {
	if err := e.key.Validate(); err != nil {
		return err
	}
	for name, v := range e.props {
		if err := validatePropertyName(name); err != nil {
			return err
		}
		if _, err := Normalize(v); err != nil {
			return tserrors.NewValidationError(name, err.Error())
		}
	}
	return nil
}

func validatePropertyName(name string) error {
	switch {
	case name == "":
		return tserrors.NewValidationError("property", "name must not be empty")
	case name == PartitionKeyProperty || name == RowKeyProperty || name == TimestampProperty:
		return tserrors.NewValidationError(name, "is a reserved property name")
	case strings.HasPrefix(name, "odata."), strings.Contains(name, "@odata."):
		return tserrors.NewValidationError(name, "is reserved for service metadata")
	case len(name) > 255:
		return tserrors.NewValidationError(name, "property names are limited to 255 characters")
	}
	return nil
}

// Normalize converts a Go value into one of the supported property kinds:
// string, bool, int32, int64, float64, time.Time, []byte, uuid.UUID.
func Normalize(v any) (any, error) {
	switch tv := v.(type) {
	case string, bool, int32, int64, float64, []byte, uuid.UUID:
		return tv, nil
	case time.Time:
		return tv.UTC(), nil
	case *time.Time:
		if tv == nil {
			return nil, fmt.Errorf("nil time")
		}
		return tv.UTC(), nil
	case int:
		if tv >= math.MinInt32 && tv <= math.MaxInt32 {
			return int32(tv), nil
		}
		return int64(tv), nil
	case int8:
		return int32(tv), nil
	case int16:
		return int32(tv), nil
	case uint8:
		return int32(tv), nil
	case uint16:
		return int32(tv), nil
	case uint32:
		return int64(tv), nil
	case float32:
		return float64(tv), nil
	case fmt.Stringer:
		return tv.String(), nil
	case nil:
		return nil, fmt.Errorf("nil values are not supported; remove the property instead")
	}
	return nil, fmt.Errorf("unsupported property type %T", v)
}

// ValueEqual compares two property values after normalization.
func ValueEqual(a, b any) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	switch av := na.(type) {
	case int32:
		return numericEqual(float64(av), nb)
	case int64:
		return numericEqual(float64(av), nb)
	case float64:
		return numericEqual(av, nb)
	case time.Time:
		bv, ok := nb.(time.Time)
		return ok && av.Equal(bv)
	case []byte:
		bv, ok := nb.([]byte)
		return ok && bytes.Equal(av, bv)
	}
	return na == nb
}

func numericEqual(a float64, b any) bool {
	switch bv := b.(type) {
	case int32:
		return a == float64(bv)
	case int64:
		return a == float64(bv)
	case float64:
		return a == bv
	}
	return false
}
