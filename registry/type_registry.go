/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sync"

	"github.com/suparena/tablestore/entity"
)

// EntityTypeProperty names the property that tags rows of mixed-type tables.
const EntityTypeProperty = "EntityType"

// UnmarshalFunc converts a stored entity into a registered Go value.
type UnmarshalFunc func(e *entity.Entity) (any, error)

var (
	typeRegistry = make(map[string]UnmarshalFunc)
	typeMu       sync.RWMutex
)

// RegisterType registers an unmarshal function for an EntityType value.
// It panics when the name is already taken to prevent accidental overrides.
func RegisterType(name string, fn UnmarshalFunc) {
	typeMu.Lock()
	defer typeMu.Unlock()
	if _, exists := typeRegistry[name]; exists {
		panic(fmt.Sprintf("type registry: type %q already registered", name))
	}
	typeRegistry[name] = fn
}

// GetUnmarshalFunc returns the registered unmarshal function for name.
func GetUnmarshalFunc(name string) (UnmarshalFunc, error) {
	typeMu.RLock()
	defer typeMu.RUnlock()
	fn, ok := typeRegistry[name]
	if !ok {
		return nil, fmt.Errorf("type registry: no type registered for %q", name)
	}
	return fn, nil
}

// Decode dispatches e to the function registered for its EntityType property.
func Decode(e *entity.Entity) (any, error) {
	name := e.GetString(EntityTypeProperty)
	if name == "" {
		return nil, fmt.Errorf("type registry: entity %s has no %s", e.Key(), EntityTypeProperty)
	}
	fn, err := GetUnmarshalFunc(name)
	if err != nil {
		return nil, err
	}
	return fn(e)
}
