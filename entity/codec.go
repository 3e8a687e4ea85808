/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"
)

// MarshalWire encodes the entity in the service's JSON representation.
// Typed properties carry their Edm annotations through aztables.EDMEntity.
func MarshalWire(e *Entity) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	edm := aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: e.key.PartitionKey,
			RowKey:       e.key.RowKey,
		},
		Properties: make(map[string]any, len(e.props)),
	}
	for name, v := range e.props {
		nv, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		edm.Properties[name] = toEDM(nv)
		if _, ok := nv.(float64); ok {
			// whole doubles encode as JSON integers and would be stored as Edm.Int32
			edm.Properties[name+odataTypeSuffix] = edmDouble
		}
	}
	return json.Marshal(edm)
}

const (
	odataTypeSuffix = "@odata.type"
	edmDouble       = "Edm.Double"
)

// UnmarshalWire decodes a service JSON payload into an Entity. The ETag is taken from
// the odata.etag annotation when present; point reads override it from the headers.
func UnmarshalWire(data []byte) (*Entity, error) {
	data, doubles, err := extractDoubles(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	var edm aztables.EDMEntity
	if err := json.Unmarshal(data, &edm); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	e := New(edm.PartitionKey, edm.RowKey)
	e.Timestamp = time.Time(edm.Timestamp)
	for name, v := range edm.Properties {
		if validatePropertyName(name) != nil {
			continue
		}
		e.props[name] = fromEDM(v)
		if doubles[name] {
			switch n := e.props[name].(type) {
			case int32:
				e.props[name] = float64(n)
			case int64:
				e.props[name] = float64(n)
			}
		}
	}
	var meta struct {
		ETag string `json:"odata.etag"`
	}
	if err := json.Unmarshal(data, &meta); err == nil {
		e.ETag = meta.ETag
	}
	return e, nil
}

// extractDoubles finds properties typed Edm.Double, by annotation or by a fractional or
// exponent literal, and strips their annotations from the payload.
func extractDoubles(data []byte) ([]byte, map[string]bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	doubles := make(map[string]bool)
	stripped := false
	for name, value := range raw {
		if prop, ok := strings.CutSuffix(name, odataTypeSuffix); ok {
			var typ string
			if json.Unmarshal(value, &typ) == nil && typ == edmDouble {
				doubles[prop] = true
				delete(raw, name)
				stripped = true
			}
			continue
		}
		if lit := string(value); len(lit) > 0 && (lit[0] == '-' || (lit[0] >= '0' && lit[0] <= '9')) && strings.ContainsAny(lit, ".eE") {
			doubles[name] = true
		}
	}
	if !stripped {
		return data, doubles, nil
	}
	out, err := json.Marshal(raw)
	return out, doubles, err
}

func toEDM(v any) any {
	switch tv := v.(type) {
	case int64:
		return aztables.EDMInt64(tv)
	case time.Time:
		return aztables.EDMDateTime(tv)
	case []byte:
		return aztables.EDMBinary(tv)
	case uuid.UUID:
		return aztables.EDMGUID(tv.String())
	}
	return v
}

func fromEDM(v any) any {
	switch tv := v.(type) {
	case aztables.EDMInt64:
		return int64(tv)
	case aztables.EDMDateTime:
		return time.Time(tv).UTC()
	case aztables.EDMBinary:
		return []byte(tv)
	case aztables.EDMGUID:
		if u, err := uuid.Parse(string(tv)); err == nil {
			return u
		}
		return string(tv)
	case float64:
		if tv == math.Trunc(tv) && tv >= math.MinInt32 && tv <= math.MaxInt32 {
			return int32(tv)
		}
		return tv
	case int:
		return int32(tv)
	}
	return v
}

// FromStruct converts a struct with PartitionKey/RowKey json fields into an Entity.
// Remaining exported fields become properties; zero-length omitempty fields are skipped.
func FromStruct(v any) (*Entity, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%T is not an object: %w", v, err)
	}
	pk, _ := fields[PartitionKeyProperty].(string)
	rk, _ := fields[RowKeyProperty].(string)
	e := New(pk, rk)
	for name, val := range fields {
		switch name {
		case PartitionKeyProperty, RowKeyProperty, TimestampProperty:
			continue
		}
		switch tv := val.(type) {
		case nil:
			continue
		case json.Number:
			e.props[name] = fromNumber(tv)
		case map[string]any, []any:
			return nil, fmt.Errorf("field %s of %T: nested values are not supported", name, v)
		default:
			e.props[name] = tv
		}
	}
	return e, nil
}

func fromNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i)
		}
		return i
	}
	f, _ := n.Float64()
	return f
}

// ToStruct fills out (a pointer to a struct) from the entity using json field names.
func ToStruct(e *Entity, out any) error {
	fields := make(map[string]any, len(e.props)+3)
	for name, v := range e.props {
		switch tv := v.(type) {
		case time.Time:
			fields[name] = tv.Format(time.RFC3339Nano)
		case uuid.UUID:
			fields[name] = tv.String()
		default:
			fields[name] = v
		}
	}
	fields[PartitionKeyProperty] = e.key.PartitionKey
	fields[RowKeyProperty] = e.key.RowKey
	if !e.Timestamp.IsZero() {
		fields[TimestampProperty] = e.Timestamp.Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal entity %s: %w", e.key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal entity %s into %T: %w", e.key, out, err)
	}
	return nil
}
